package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/auditlog"
	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/retry"
)

// BorrowBook lends one copy of a book to the acting user for loanDays days.
//
// Preconditions, checked inside one transaction:
//   - the user exists and is active
//   - the book exists and has at least one available copy
//   - the user holds no open borrow record for this book
//
// On success the borrow record insert and the availability decrement commit
// atomically. The decrement is a conditional update, so two concurrent
// borrows of the last copy cannot both succeed: the loser observes zero rows
// affected and fails with lending.ErrBookNotAvailable.
func (s *Service) BorrowBook(
	ctx context.Context,
	userID uuid.UUID,
	bookID uuid.UUID,
	loanDays int,
) (lending.BorrowRecord, error) {

	start := time.Now()
	ctx, span := s.startSpan(ctx, BorrowBookOperation)

	if err := lending.ValidateLoanDays(loanDays); err != nil {
		s.finishSpan(span, err)
		return lending.BorrowRecord{}, err
	}

	var record lending.BorrowRecord

	err := retry.Do(ctx, func(retryCtx context.Context) error {
		return s.store.WithinTx(retryCtx, func(txCtx context.Context, tx lending.Tx) error {
			return s.executeBorrow(txCtx, tx, userID, bookID, loanDays, &record)
		})
	}, s.retryOptionsFor(BorrowBookOperation)...)

	s.observe(BorrowBookOperation, start, err)
	s.finishSpan(span, err)

	if err != nil {
		s.logError(ctx, BorrowBookOperation, err)
		return lending.BorrowRecord{}, err
	}

	s.logOperation(ctx, "book borrowed",
		LogAttrOperation, BorrowBookOperation,
		LogAttrUserID, userID.String(),
		LogAttrBookID, bookID.String(),
		LogAttrRecordID, record.ID.String(),
		LogAttrDurationMS, durationToMilliseconds(time.Since(start)),
	)

	return record, nil
}

// executeBorrow contains the transactional borrow logic that can be retried.
func (s *Service) executeBorrow(
	ctx context.Context,
	tx lending.Tx,
	userID uuid.UUID,
	bookID uuid.UUID,
	loanDays int,
	record *lending.BorrowRecord,
) error {

	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if !user.Active {
		return lending.ErrUserInactive
	}

	book, err := tx.GetBook(ctx, bookID)
	if err != nil {
		return err
	}

	if !book.IsAvailable() {
		return lending.ErrBookNotAvailable
	}

	hasOpen, err := tx.HasOpenBorrow(ctx, userID, bookID)
	if err != nil {
		return err
	}

	if hasOpen {
		return lending.ErrAlreadyBorrowed
	}

	now := s.now()

	*record = lending.BorrowRecord{
		ID:         uuid.New(),
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: now,
		DueDate:    now.AddDate(0, 0, loanDays),
		Status:     lending.StatusBorrowed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// The partial unique index on open records turns a concurrent duplicate
	// borrow by the same user into ErrAlreadyBorrowed here.
	if err = tx.InsertBorrowRecord(ctx, *record); err != nil {
		return err
	}

	// Inventory race guard: conditional decrement, zero rows affected means
	// another transaction took the last copy since the availability check.
	decremented, err := tx.DecrementAvailableCopies(ctx, bookID)
	if err != nil {
		return err
	}

	if !decremented {
		return lending.ErrBookNotAvailable
	}

	entry, err := auditlog.BuildBorrowRecorded(*record, now)
	if err != nil {
		return err
	}

	return tx.AppendAuditEntry(ctx, entry)
}
