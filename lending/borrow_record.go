package lending

import (
	"time"

	"github.com/google/uuid"
)

// Loan period bounds in days. Callers that do not let users choose should
// pass DefaultLoanDays.
const (
	MinLoanDays     = 1
	MaxLoanDays     = 90
	DefaultLoanDays = 14
)

// BorrowStatus is the stored lifecycle state of a borrow record.
//
// The status freezes the verdict evaluated when the record was closed: a
// record returned on time stays StatusReturned even after its due date has
// long passed. Whether an open record is currently overdue is the derived
// predicate IsOverdueAt, never a stored flag.
type BorrowStatus string

const (
	StatusBorrowed BorrowStatus = "borrowed"
	StatusReturned BorrowStatus = "returned"
	StatusOverdue  BorrowStatus = "overdue"
)

// BorrowRecord tracks one borrow event of one book by one user. It is
// created exactly once (StatusBorrowed) and transitions exactly once more,
// to StatusReturned or StatusOverdue, when the book is returned; it is never
// re-opened.
type BorrowRecord struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	BookID     uuid.UUID
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time // nil until returned, then immutable
	Status     BorrowStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOpen reports whether the record is an active loan (not yet returned).
func (r BorrowRecord) IsOpen() bool {
	return r.ReturnDate == nil
}

// IsOverdueAt reports whether the record is an active loan past its due date
// at the given instant. Returned records are never overdue by this predicate,
// regardless of their stored status.
func (r BorrowRecord) IsOverdueAt(now time.Time) bool {
	return r.ReturnDate == nil && now.After(r.DueDate)
}

// CloseVerdictAt computes the status a record freezes to when returned at the
// given instant.
func (r BorrowRecord) CloseVerdictAt(now time.Time) BorrowStatus {
	if now.After(r.DueDate) {
		return StatusOverdue
	}

	return StatusReturned
}

// ValidateLoanDays checks a requested loan period against the allowed bounds.
func ValidateLoanDays(days int) error {
	if days < MinLoanDays || days > MaxLoanDays {
		return ErrInvalidLoanPeriod
	}

	return nil
}
