package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/postgres/internal/adapters"
)

const (
	logMsgBuildQueryFailed = "failed to build sql query"
	logMsgDBQueryFailed    = "database query execution failed"
	logMsgDBExecFailed     = "database execution failed"
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgScanRowFailed    = "failed to scan database row"
	logMsgSQLExecuted      = "executed sql for: "
	logAttrError           = "error"
	logAttrQuery           = "query"
	logAttrDurationMS      = "duration_ms"
)

const (
	colID              = "id"
	colName            = "name"
	colBio             = "bio"
	colCreatedAt       = "created_at"
	colUpdatedAt       = "updated_at"
	colTitle           = "title"
	colISBN            = "isbn"
	colPublishedDate   = "published_date"
	colAuthorID        = "author_id"
	colTotalCopies     = "total_copies"
	colAvailableCopies = "available_copies"
	colEmail           = "email"
	colUsername        = "username"
	colActive          = "active"
	colUserID          = "user_id"
	colBookID          = "book_id"
	colBorrowDate      = "borrow_date"
	colDueDate         = "due_date"
	colReturnDate      = "return_date"
	colStatus          = "status"
	colEventType       = "event_type"
	colOccurredAt      = "occurred_at"
	colPayload         = "payload"
	dialectPostgres    = "postgres"
	castJsonb          = "?::jsonb"
)

var builder = goqu.Dialect(dialectPostgres)

// tableNames holds the resolved table names after applying any prefix.
type tableNames struct {
	authors string
	books   string
	users   string
	borrows string
	audit   string
}

func tablesWithPrefix(prefix string) tableNames {
	return tableNames{
		authors: prefix + "authors",
		books:   prefix + "books",
		users:   prefix + "users",
		borrows: prefix + "borrow_records",
		audit:   prefix + "audit_entries",
	}
}

// toSQL is implemented by every goqu dataset type the engine builds.
type toSQL interface {
	ToSQL() (string, []any, error)
}

// queries carries the full read and write surface of the engine. The db
// field is either the connection adapter (direct reads) or an open
// transaction, so every method works identically in both scopes.
type queries struct {
	db     adapters.Querier
	tables tableNames
	logger lending.Logger
}

func (q queries) runQuery(ctx context.Context, action string, dataset toSQL) (adapters.DBRows, error) {
	sqlQuery, _, buildErr := dataset.ToSQL()
	if buildErr != nil {
		q.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
		return nil, errors.Join(ErrBuildingQueryFailed, buildErr)
	}

	start := time.Now()
	rows, queryErr := q.db.Query(ctx, sqlQuery)
	q.logQueryWithDuration(action, sqlQuery, time.Since(start))

	if queryErr != nil {
		q.logError(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return nil, mapDBError(queryErr, ErrQueryFailed)
	}

	return rows, nil
}

func (q queries) runExec(ctx context.Context, action string, dataset toSQL) (int64, error) {
	sqlQuery, _, buildErr := dataset.ToSQL()
	if buildErr != nil {
		q.logError(logMsgBuildQueryFailed, logAttrError, buildErr.Error())
		return 0, errors.Join(ErrBuildingQueryFailed, buildErr)
	}

	start := time.Now()
	result, execErr := q.db.Exec(ctx, sqlQuery)
	q.logQueryWithDuration(action, sqlQuery, time.Since(start))

	if execErr != nil {
		q.logError(logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		return 0, mapDBError(execErr, ErrExecFailed)
	}

	rowsAffected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return 0, errors.Join(ErrExecFailed, rowsErr)
	}

	return rowsAffected, nil
}

// countRows runs a COUNT(*) query over the given dataset.
func (q queries) countRows(ctx context.Context, action string, dataset *goqu.SelectDataset) (int, error) {
	rows, err := q.runQuery(ctx, action, dataset.Select(goqu.COUNT(goqu.Star())))
	if err != nil {
		return 0, err
	}
	defer q.closeRows(rows)

	var count int64
	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			q.logError(logMsgScanRowFailed, logAttrError, scanErr.Error())
			return 0, errors.Join(ErrScanFailed, scanErr)
		}
	}

	return int(count), nil
}

func (q queries) closeRows(rows adapters.DBRows) {
	if err := rows.Close(); err != nil {
		q.logWarn(logMsgCloseRowsFailed, logAttrError, err.Error())
	}
}

func (q queries) logQueryWithDuration(action string, sqlQuery string, duration time.Duration) {
	if q.logger != nil {
		q.logger.Debug(logMsgSQLExecuted+action, logAttrQuery, sqlQuery, logAttrDurationMS, duration.Milliseconds())
	}
}

func (q queries) logWarn(msg string, args ...any) {
	if q.logger != nil {
		q.logger.Warn(msg, args...)
	}
}

func (q queries) logError(msg string, args ...any) {
	if q.logger != nil {
		q.logger.Error(msg, args...)
	}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Join(ErrScanFailed, err)
	}

	return id, nil
}

// nullableString maps "" to SQL NULL on the way in.
func nullableString(s string) any {
	if s == "" {
		return nil
	}

	return s
}

// nullableTime maps nil to SQL NULL on the way in.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return *t
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}

	t := nt.Time.UTC()
	return &t
}
