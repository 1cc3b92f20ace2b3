package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/auditlog"
	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/retry"
)

// SweepOverdue promotes every active loan past its due date to overdue status
// and returns the newly flagged records. All status changes commit in one
// transaction.
//
// The sweep is idempotent: records already marked overdue are excluded from
// the scan, so an immediate second run returns an empty result. It never
// touches copy counts - the availability increment belongs to the return
// path alone. The trigger (cron, scheduler, admin endpoint) lives outside
// this module.
func (s *Service) SweepOverdue(ctx context.Context) ([]lending.BorrowRecord, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, SweepOverdueOperation)

	var flagged []lending.BorrowRecord

	err := retry.Do(ctx, func(retryCtx context.Context) error {
		flagged = nil

		return s.store.WithinTx(retryCtx, func(txCtx context.Context, tx lending.Tx) error {
			return s.executeSweep(txCtx, tx, &flagged)
		})
	}, s.retryOptionsFor(SweepOverdueOperation)...)

	s.observe(SweepOverdueOperation, start, err)
	s.finishSpan(span, err)

	if err != nil {
		s.logError(ctx, SweepOverdueOperation, err)
		return nil, err
	}

	s.logOperation(ctx, "overdue sweep completed",
		LogAttrOperation, SweepOverdueOperation,
		LogAttrRecordCount, len(flagged),
		LogAttrDurationMS, durationToMilliseconds(time.Since(start)),
	)

	return flagged, nil
}

// executeSweep contains the transactional sweep logic that can be retried.
func (s *Service) executeSweep(ctx context.Context, tx lending.Tx, flagged *[]lending.BorrowRecord) error {
	now := s.now()

	lapsed, err := tx.ListLapsedBorrows(ctx, now)
	if err != nil {
		return err
	}

	if len(lapsed) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(lapsed))
	for i, record := range lapsed {
		ids[i] = record.ID
	}

	if err = tx.MarkOverdue(ctx, ids, now); err != nil {
		return err
	}

	for i := range lapsed {
		lapsed[i].Status = lending.StatusOverdue
		lapsed[i].UpdatedAt = now

		entry, buildErr := auditlog.BuildOverdueFlagged(lapsed[i], now)
		if buildErr != nil {
			return buildErr
		}

		if err = tx.AppendAuditEntry(ctx, entry); err != nil {
			return err
		}
	}

	*flagged = lapsed

	return nil
}
