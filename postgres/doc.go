// Package postgres implements the lending.Store port on PostgreSQL.
//
// The engine builds all SQL with goqu and runs it through a thin driver
// adapter, so applications can hand it a pgxpool.Pool, a database/sql DB, or
// a sqlx.DB without the engine caring which. Writes rely on conditional
// updates (rows-affected checks) rather than row locks: the inventory
// decrement only succeeds while copies remain, and closing a borrow record
// only succeeds while it is still open. Uniqueness races that slip past
// service-level pre-checks surface as constraint violations and are mapped
// onto the lending error taxonomy in mapDBError.
package postgres
