// Package lending contains the domain core of the library lending backend:
// the entities (Author, Book, BorrowRecord, User), the validation rules and
// invariants that constrain them, the typed error taxonomy surfaced to
// callers, and the ports the services depend on (transactional storage,
// logging, metrics, tracing).
//
// The package is dependency-light on purpose. Storage engines (see package
// postgres) and observability backends (see package oteladapters) implement
// the ports defined here; the services in packages circulation and catalog
// consume them.
//
// Error handling follows a four-kind taxonomy: ErrNotFound, ErrConflict,
// ErrForbidden and ErrValidation. Every specific sentinel wraps exactly one
// of the four, so callers can branch on the kind with errors.Is without
// losing the specific reason.
package lending
