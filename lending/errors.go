package lending

import (
	"errors"
	"fmt"
)

// The four error kinds. Every rejected precondition wraps exactly one of
// these, so transport layers can map errors.Is(err, kind) to a status code.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)

// NotFound sentinels.
var (
	ErrAuthorNotFound       = fmt.Errorf("%w: author does not exist", ErrNotFound)
	ErrBookNotFound         = fmt.Errorf("%w: book does not exist", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("%w: user does not exist", ErrNotFound)
	ErrBorrowRecordNotFound = fmt.Errorf("%w: borrow record does not exist", ErrNotFound)
)

// Conflict sentinels.
var (
	ErrBookNotAvailable   = fmt.Errorf("%w: no copies available for borrowing", ErrConflict)
	ErrAlreadyBorrowed    = fmt.Errorf("%w: user already has this book borrowed", ErrConflict)
	ErrAlreadyReturned    = fmt.Errorf("%w: borrow record is already returned", ErrConflict)
	ErrISBNAlreadyExists  = fmt.Errorf("%w: a book with this ISBN already exists", ErrConflict)
	ErrAuthorHasBooks     = fmt.Errorf("%w: author still owns books", ErrConflict)
	ErrBookHasOpenBorrows = fmt.Errorf("%w: book has active borrow records", ErrConflict)
)

// Forbidden sentinels.
var (
	ErrNotRecordOwner = fmt.Errorf("%w: borrow record belongs to another user", ErrForbidden)
	ErrUserInactive   = fmt.Errorf("%w: user account is deactivated", ErrForbidden)
)

// Validation sentinels.
var (
	ErrInvalidAuthorName = fmt.Errorf("%w: author name is required and must not exceed %d characters", ErrValidation, MaxNameLength)
	ErrInvalidAuthorBio  = fmt.Errorf("%w: author bio must not exceed %d characters", ErrValidation, MaxBioLength)
	ErrInvalidBookTitle  = fmt.Errorf("%w: book title is required and must not exceed %d characters", ErrValidation, MaxTitleLength)
	ErrInvalidISBN       = fmt.Errorf("%w: isbn must not exceed %d characters", ErrValidation, MaxISBNLength)
	ErrInvalidCopyCounts = fmt.Errorf("%w: available copies must be between 0 and total copies, total at least 1", ErrValidation)
	ErrInvalidLoanPeriod = fmt.Errorf("%w: loan period must be between %d and %d days", ErrValidation, MinLoanDays, MaxLoanDays)
	ErrInvalidPage       = fmt.Errorf("%w: page must be >= 1 and page size between 1 and %d", ErrValidation, MaxPageSize)
	ErrNoFieldsToUpdate  = fmt.Errorf("%w: no fields supplied for update", ErrValidation)
)

// Storage-layer sentinels. These are not part of the caller-facing taxonomy:
// ErrConcurrencyConflict marks a serializable-transaction abort that should be
// retried, ErrStorageUnavailable marks a transient connection failure that may
// be retried once for idempotent reads.
var (
	ErrConcurrencyConflict = errors.New("concurrency conflict, transaction should be retried")
	ErrStorageUnavailable  = errors.New("storage temporarily unavailable")
)

// IsRetryable reports whether an operation that failed with err may be
// attempted again without changing its semantics.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrStorageUnavailable)
}
