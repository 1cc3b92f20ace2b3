package lending

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Book is a catalog entry with copy-count inventory. The inventory invariant
// 0 <= AvailableCopies <= TotalCopies holds at all times; it is validated on
// every manual mutation and maintained by construction for borrow/return,
// which only move the counter through paired conditional updates.
type Book struct {
	ID              uuid.UUID
	Title           string
	ISBN            string // empty means no ISBN; globally unique when present
	PublishedDate   *time.Time
	AuthorID        uuid.UUID
	TotalCopies     int
	AvailableCopies int
	CreatedAt       time.Time
}

// IsAvailable reports whether at least one copy can currently be borrowed.
func (b Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// ValidateBookTitle checks the required title against its length limit.
func ValidateBookTitle(title string) error {
	if strings.TrimSpace(title) == "" || len(title) > MaxTitleLength {
		return ErrInvalidBookTitle
	}

	return nil
}

// ValidateISBN checks the optional ISBN against its length limit.
// Uniqueness is enforced by the catalog service and, against concurrent
// inserts, by a unique constraint at the storage layer.
func ValidateISBN(isbn string) error {
	if len(isbn) > MaxISBNLength {
		return ErrInvalidISBN
	}

	return nil
}

// ValidateCopyCounts checks the inventory invariant for a proposed pair of
// counters. Rejects instead of clamping: an admin edit that would make
// available exceed total is a validation error.
func ValidateCopyCounts(total int, available int) error {
	if total < 1 || available < 0 || available > total {
		return ErrInvalidCopyCounts
	}

	return nil
}
