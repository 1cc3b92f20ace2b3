package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/postgres/internal/adapters"
)

const (
	actionGetBorrowRecord    = "get borrow record"
	actionHasOpenBorrow      = "check open borrow"
	actionCountOpenBorrows   = "count open borrows for book"
	actionListBorrowsByUser  = "list borrows by user"
	actionListLapsedBorrows  = "list lapsed borrows"
	actionInsertBorrowRecord = "insert borrow record"
	actionCloseBorrowRecord  = "close borrow record"
	actionMarkOverdue        = "mark overdue"
)

func (q queries) borrowSelect() *goqu.SelectDataset {
	return builder.From(q.tables.borrows).
		Select(colID, colUserID, colBookID, colBorrowDate, colDueDate, colReturnDate, colStatus, colCreatedAt, colUpdatedAt)
}

func (q queries) GetBorrowRecord(ctx context.Context, id uuid.UUID) (lending.BorrowRecord, error) {
	dataset := q.borrowSelect().Where(goqu.C(colID).Eq(id.String()))

	rows, err := q.runQuery(ctx, actionGetBorrowRecord, dataset)
	if err != nil {
		return lending.BorrowRecord{}, err
	}
	defer q.closeRows(rows)

	if !rows.Next() {
		return lending.BorrowRecord{}, lending.ErrBorrowRecordNotFound
	}

	return q.scanBorrowRecord(rows)
}

func (q queries) HasOpenBorrow(ctx context.Context, userID uuid.UUID, bookID uuid.UUID) (bool, error) {
	dataset := builder.From(q.tables.borrows).Where(
		goqu.C(colUserID).Eq(userID.String()),
		goqu.C(colBookID).Eq(bookID.String()),
		goqu.C(colReturnDate).IsNull(),
	)

	count, err := q.countRows(ctx, actionHasOpenBorrow, dataset)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (q queries) CountOpenBorrowsForBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	dataset := builder.From(q.tables.borrows).Where(
		goqu.C(colBookID).Eq(bookID.String()),
		goqu.C(colReturnDate).IsNull(),
	)

	return q.countRows(ctx, actionCountOpenBorrows, dataset)
}

// ListBorrowsByUser returns one page of a user's borrow history, most recent
// borrow first, plus the total count over the filtered set.
func (q queries) ListBorrowsByUser(
	ctx context.Context,
	userID uuid.UUID,
	activeOnly bool,
	page lending.Page,
) ([]lending.BorrowRecord, int, error) {

	filtered := builder.From(q.tables.borrows).Where(goqu.C(colUserID).Eq(userID.String()))
	if activeOnly {
		filtered = filtered.Where(goqu.C(colReturnDate).IsNull())
	}

	total, err := q.countRows(ctx, actionListBorrowsByUser, filtered)
	if err != nil {
		return nil, 0, err
	}

	dataset := filtered.
		Select(colID, colUserID, colBookID, colBorrowDate, colDueDate, colReturnDate, colStatus, colCreatedAt, colUpdatedAt).
		Order(goqu.C(colBorrowDate).Desc(), goqu.C(colCreatedAt).Desc()).
		Limit(uint(page.Size)).
		Offset(uint(page.Offset()))

	rows, err := q.runQuery(ctx, actionListBorrowsByUser, dataset)
	if err != nil {
		return nil, 0, err
	}
	defer q.closeRows(rows)

	records, err := q.scanBorrowRecords(rows)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// ListLapsedBorrows returns the open records past their due date that are not
// flagged overdue yet. The status condition makes repeated sweeps cheap: rows
// flagged by an earlier run no longer match.
func (q queries) ListLapsedBorrows(ctx context.Context, now time.Time) ([]lending.BorrowRecord, error) {
	dataset := q.borrowSelect().
		Where(
			goqu.C(colReturnDate).IsNull(),
			goqu.C(colDueDate).Lt(now),
			goqu.C(colStatus).Neq(string(lending.StatusOverdue)),
		).
		Order(goqu.C(colDueDate).Asc())

	rows, err := q.runQuery(ctx, actionListLapsedBorrows, dataset)
	if err != nil {
		return nil, err
	}
	defer q.closeRows(rows)

	return q.scanBorrowRecords(rows)
}

func (q queries) InsertBorrowRecord(ctx context.Context, record lending.BorrowRecord) error {
	dataset := builder.Insert(q.tables.borrows).Rows(goqu.Record{
		colID:         record.ID.String(),
		colUserID:     record.UserID.String(),
		colBookID:     record.BookID.String(),
		colBorrowDate: record.BorrowDate,
		colDueDate:    record.DueDate,
		colReturnDate: nullableTime(record.ReturnDate),
		colStatus:     string(record.Status),
		colCreatedAt:  record.CreatedAt,
		colUpdatedAt:  record.UpdatedAt,
	})

	_, err := q.runExec(ctx, actionInsertBorrowRecord, dataset)

	return err
}

// CloseBorrowRecord freezes an open record to its verdict. The return_date
// guard makes a concurrent close lose the race with zero rows affected.
func (q queries) CloseBorrowRecord(
	ctx context.Context,
	id uuid.UUID,
	returnDate time.Time,
	status lending.BorrowStatus,
) error {

	dataset := builder.Update(q.tables.borrows).
		Set(goqu.Record{
			colReturnDate: returnDate,
			colStatus:     string(status),
			colUpdatedAt:  returnDate,
		}).
		Where(
			goqu.C(colID).Eq(id.String()),
			goqu.C(colReturnDate).IsNull(),
		)

	rowsAffected, err := q.runExec(ctx, actionCloseBorrowRecord, dataset)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return lending.ErrAlreadyReturned
	}

	return nil
}

func (q queries) MarkOverdue(ctx context.Context, ids []uuid.UUID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	rawIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		rawIDs = append(rawIDs, id.String())
	}

	dataset := builder.Update(q.tables.borrows).
		Set(goqu.Record{
			colStatus:    string(lending.StatusOverdue),
			colUpdatedAt: now,
		}).
		Where(
			goqu.C(colID).In(rawIDs),
			goqu.C(colReturnDate).IsNull(),
		)

	_, err := q.runExec(ctx, actionMarkOverdue, dataset)

	return err
}

func (q queries) scanBorrowRecords(rows adapters.DBRows) ([]lending.BorrowRecord, error) {
	var records []lending.BorrowRecord
	for rows.Next() {
		record, err := q.scanBorrowRecord(rows)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

func (q queries) scanBorrowRecord(rows adapters.DBRows) (lending.BorrowRecord, error) {
	var row struct {
		id         string
		userID     string
		bookID     string
		borrowDate time.Time
		dueDate    time.Time
		returnDate sql.NullTime
		status     string
		createdAt  time.Time
		updatedAt  time.Time
	}

	err := rows.Scan(
		&row.id, &row.userID, &row.bookID, &row.borrowDate, &row.dueDate,
		&row.returnDate, &row.status, &row.createdAt, &row.updatedAt,
	)
	if err != nil {
		q.logError(logMsgScanRowFailed, logAttrError, err.Error())
		return lending.BorrowRecord{}, errors.Join(ErrScanFailed, err)
	}

	id, err := parseID(row.id)
	if err != nil {
		return lending.BorrowRecord{}, err
	}

	userID, err := parseID(row.userID)
	if err != nil {
		return lending.BorrowRecord{}, err
	}

	bookID, err := parseID(row.bookID)
	if err != nil {
		return lending.BorrowRecord{}, err
	}

	return lending.BorrowRecord{
		ID:         id,
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: row.borrowDate.UTC(),
		DueDate:    row.dueDate.UTC(),
		ReturnDate: timePtr(row.returnDate),
		Status:     lending.BorrowStatus(row.status),
		CreatedAt:  row.createdAt.UTC(),
		UpdatedAt:  row.updatedAt.UTC(),
	}, nil
}
