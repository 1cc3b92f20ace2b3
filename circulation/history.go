package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/retry"
)

// History is one page of a user's borrow history.
type History struct {
	Records    []lending.BorrowRecord
	Total      int // count over the filtered set before pagination
	TotalPages int
}

// GetUserBorrowHistory returns the acting user's borrow records, most recent
// borrow first, optionally filtered to active loans only.
//
// The read is idempotent, so a transient storage failure is retried once
// before the error is surfaced.
func (s *Service) GetUserBorrowHistory(
	ctx context.Context,
	userID uuid.UUID,
	activeOnly bool,
	page lending.Page,
) (History, error) {

	start := time.Now()
	ctx, span := s.startSpan(ctx, HistoryOperation)

	if err := page.Validate(); err != nil {
		s.finishSpan(span, err)
		return History{}, err
	}

	var records []lending.BorrowRecord
	var total int

	err := retry.Do(ctx, func(retryCtx context.Context) error {
		var listErr error
		records, total, listErr = s.store.ListBorrowsByUser(retryCtx, userID, activeOnly, page)

		return listErr
	}, retry.WithMaxAttempts(2))

	s.observe(HistoryOperation, start, err)
	s.finishSpan(span, err)

	if err != nil {
		s.logError(ctx, HistoryOperation, err)
		return History{}, err
	}

	s.logOperation(ctx, "borrow history queried",
		LogAttrOperation, HistoryOperation,
		LogAttrUserID, userID.String(),
		LogAttrRecordCount, len(records),
		LogAttrDurationMS, durationToMilliseconds(time.Since(start)),
	)

	return History{
		Records:    records,
		Total:      total,
		TotalPages: lending.TotalPages(total, page.Size),
	}, nil
}
