// Package memstore provides an in-memory implementation of lending.Store for
// service-level tests.
//
// Transactions clone the whole state, apply writes to the clone, and swap it
// back on commit, while a store-wide mutex serializes them. That preserves
// the semantics the services rely on - atomic commit, rollback on error, and
// conditional updates that lose races - without a database.
package memstore
