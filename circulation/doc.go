// Package circulation implements the borrow lifecycle engine: borrowing and
// returning books, querying a user's borrow history, and the overdue sweep.
//
// Every mutating operation runs as one storage transaction through the
// lending.Store port, so a borrow record and its paired copy-count change are
// never observable in a half-applied state. Concurrency conflicts reported by
// the storage engine are retried with exponential backoff; all rejected
// preconditions surface as typed sentinels from package lending.
package circulation
