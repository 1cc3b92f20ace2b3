package postgres

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/libralend/lending-core-go/lending"
)

// Engine-level sentinels. Driver errors are joined with one of these so
// callers can both classify the failure and inspect the original cause.
var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrEmptyTablePrefix      = errors.New("table prefix must not be empty")
	ErrBuildingQueryFailed   = errors.New("failed to build sql query")
	ErrQueryFailed           = errors.New("database query execution failed")
	ErrExecFailed            = errors.New("database execution failed")
	ErrScanFailed            = errors.New("failed to scan database row")
	ErrBeginTxFailed         = errors.New("failed to begin transaction")
	ErrCommitFailed          = errors.New("failed to commit transaction")
)

// SQLSTATE codes the engine reacts to.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeSerializationFail   = "40001"
	codeDeadlockDetected    = "40P01"
	classConnectionError    = "08"
)

// Constraint name suffixes, stable under any table prefix.
const (
	constraintISBNUnique    = "books_isbn_key"
	constraintOpenBorrowIdx = "open_borrow_per_user_book"
	constraintCopyCounts    = "books_copy_counts_check"
	constraintBookAuthorFK  = "books_author_id_fkey"
	constraintBorrowUserFK  = "borrow_records_user_id_fkey"
	constraintBorrowBookFK  = "borrow_records_book_id_fkey"
)

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}

	return ""
}

// mapDBError translates a driver error into the lending error taxonomy where
// a mapping exists, and joins it with the given engine sentinel otherwise.
func mapDBError(err error, fallback error) error {
	code := sqlState(err)

	switch {
	case code == codeSerializationFail || code == codeDeadlockDetected:
		return errors.Join(lending.ErrConcurrencyConflict, err)

	case code == codeUniqueViolation:
		return mapUniqueViolation(err)

	case code == codeForeignKeyViolation:
		return mapForeignKeyViolation(err)

	case code == codeCheckViolation && strings.HasSuffix(constraintName(err), constraintCopyCounts):
		return errors.Join(lending.ErrInvalidCopyCounts, err)

	case strings.HasPrefix(code, classConnectionError) || errors.Is(err, sql.ErrConnDone):
		return errors.Join(lending.ErrStorageUnavailable, err)
	}

	return errors.Join(fallback, err)
}

func mapUniqueViolation(err error) error {
	constraint := constraintName(err)

	switch {
	case strings.HasSuffix(constraint, constraintISBNUnique):
		return errors.Join(lending.ErrISBNAlreadyExists, err)

	case strings.Contains(constraint, constraintOpenBorrowIdx):
		return errors.Join(lending.ErrAlreadyBorrowed, err)
	}

	return errors.Join(lending.ErrConflict, err)
}

func mapForeignKeyViolation(err error) error {
	constraint := constraintName(err)

	switch {
	case strings.HasSuffix(constraint, constraintBookAuthorFK):
		return errors.Join(lending.ErrAuthorNotFound, err)

	case strings.HasSuffix(constraint, constraintBorrowUserFK):
		return errors.Join(lending.ErrUserNotFound, err)

	case strings.HasSuffix(constraint, constraintBorrowBookFK):
		return errors.Join(lending.ErrBookNotFound, err)
	}

	return errors.Join(lending.ErrConflict, err)
}
