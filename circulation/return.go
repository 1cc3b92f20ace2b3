package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/auditlog"
	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/retry"
)

// ReturnBook closes the given borrow record on behalf of the acting user.
//
// Preconditions, checked inside one transaction:
//   - the record exists
//   - the record belongs to the acting user (ownership is strict, there is
//     no admin override)
//   - the record has not been returned yet
//
// The status frozen on the record is the verdict at return time: overdue if
// the return happens after the due date, returned otherwise. The owning
// book's availability increment commits atomically with the record update.
func (s *Service) ReturnBook(
	ctx context.Context,
	userID uuid.UUID,
	recordID uuid.UUID,
) (lending.BorrowRecord, error) {

	start := time.Now()
	ctx, span := s.startSpan(ctx, ReturnBookOperation)

	var record lending.BorrowRecord

	err := retry.Do(ctx, func(retryCtx context.Context) error {
		return s.store.WithinTx(retryCtx, func(txCtx context.Context, tx lending.Tx) error {
			return s.executeReturn(txCtx, tx, userID, recordID, &record)
		})
	}, s.retryOptionsFor(ReturnBookOperation)...)

	s.observe(ReturnBookOperation, start, err)
	s.finishSpan(span, err)

	if err != nil {
		s.logError(ctx, ReturnBookOperation, err)
		return lending.BorrowRecord{}, err
	}

	s.logOperation(ctx, "book returned",
		LogAttrOperation, ReturnBookOperation,
		LogAttrUserID, userID.String(),
		LogAttrRecordID, record.ID.String(),
		LogAttrStatus, string(record.Status),
		LogAttrDurationMS, durationToMilliseconds(time.Since(start)),
	)

	return record, nil
}

// executeReturn contains the transactional return logic that can be retried.
func (s *Service) executeReturn(
	ctx context.Context,
	tx lending.Tx,
	userID uuid.UUID,
	recordID uuid.UUID,
	record *lending.BorrowRecord,
) error {

	found, err := tx.GetBorrowRecord(ctx, recordID)
	if err != nil {
		return err
	}

	if found.UserID != userID {
		return lending.ErrNotRecordOwner
	}

	if !found.IsOpen() {
		return lending.ErrAlreadyReturned
	}

	now := s.now()
	status := found.CloseVerdictAt(now)

	if err = tx.CloseBorrowRecord(ctx, found.ID, now, status); err != nil {
		return err
	}

	// Paired with the decrement performed by the borrow that opened this
	// record, so the counter cannot drift past total_copies.
	if err = tx.IncrementAvailableCopies(ctx, found.BookID); err != nil {
		return err
	}

	entry, err := auditlog.BuildReturnRecorded(found, status, now)
	if err != nil {
		return err
	}

	if err = tx.AppendAuditEntry(ctx, entry); err != nil {
		return err
	}

	found.ReturnDate = &now
	found.Status = status
	found.UpdatedAt = now
	*record = found

	return nil
}
