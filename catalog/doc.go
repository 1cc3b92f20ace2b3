// Package catalog implements the catalog store service: author and book CRUD
// with partial updates, ISBN uniqueness, the copy-count inventory invariant,
// and the deletion guards (authors with books, books with active loans).
//
// All writes run through one lending.Store transaction. Uniqueness is checked
// in the transaction before insert, but the authoritative guard against a
// concurrent insert is the unique constraint at the storage layer, which the
// engine surfaces as the matching Conflict sentinel.
package catalog
