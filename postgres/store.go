package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/postgres/internal/adapters"
)

// Store implements the lending.Store port on PostgreSQL. Direct calls run
// outside any transaction; writes are only reachable through WithinTx.
type Store struct {
	q  queries
	db adapters.DBAdapter
}

// Option defines a functional option for configuring the Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store.
//
// Debug level: SQL queries with execution timing (development use)
// Warn level: non-critical issues like cleanup failures
// Error level: failures that cause operation failures.
func WithLogger(logger lending.Logger) Option {
	return func(s *Store) error {
		s.q.logger = logger
		return nil
	}
}

// WithTablePrefix prepends the given prefix to every table name, so multiple
// deployments (or test runs) can share one database.
func WithTablePrefix(prefix string) Option {
	return func(s *Store) error {
		if prefix == "" {
			return ErrEmptyTablePrefix
		}

		s.q.tables = tablesWithPrefix(prefix)

		return nil
	}
}

// NewStoreFromPGXPool creates a new Store using a pgx pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (*Store, error) {
	store := &Store{
		q:  queries{db: db, tables: tablesWithPrefix("")},
		db: db,
	}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// WithinTx runs fn inside one database transaction: commit if fn returns nil,
// roll back and propagate the error otherwise. The transaction is released on
// every exit path; rollback after a successful commit is a no-op.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx lending.Tx) error) error {
	dbTx, beginErr := s.db.BeginTx(ctx)
	if beginErr != nil {
		return mapDBError(beginErr, ErrBeginTxFailed)
	}

	committed := false
	defer func() {
		if !committed {
			_ = dbTx.Rollback(ctx)
		}
	}()

	txHandle := storeTx{queries{db: dbTx, tables: s.q.tables, logger: s.q.logger}}

	if err := fn(ctx, txHandle); err != nil {
		return err
	}

	if commitErr := dbTx.Commit(ctx); commitErr != nil {
		return mapDBError(commitErr, ErrCommitFailed)
	}

	committed = true

	return nil
}

// storeTx is the lending.Tx handle passed to transactional closures. It runs
// the same query surface as the Store, scoped to one open transaction.
type storeTx struct {
	queries
}

var (
	_ lending.Store = (*Store)(nil)
	_ lending.Tx    = storeTx{}
)

func (s *Store) GetAuthor(ctx context.Context, id uuid.UUID) (lending.Author, error) {
	return s.q.GetAuthor(ctx, id)
}

func (s *Store) ListAuthors(ctx context.Context, page lending.Page) ([]lending.Author, int, error) {
	return s.q.ListAuthors(ctx, page)
}

func (s *Store) CountBooksByAuthor(ctx context.Context, authorID uuid.UUID) (int, error) {
	return s.q.CountBooksByAuthor(ctx, authorID)
}

func (s *Store) GetBook(ctx context.Context, id uuid.UUID) (lending.Book, error) {
	return s.q.GetBook(ctx, id)
}

func (s *Store) FindBookByISBN(ctx context.Context, isbn string) (lending.Book, error) {
	return s.q.FindBookByISBN(ctx, isbn)
}

func (s *Store) SearchBooks(ctx context.Context, search lending.BookSearch, page lending.Page) ([]lending.Book, int, error) {
	return s.q.SearchBooks(ctx, search, page)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (lending.User, error) {
	return s.q.GetUser(ctx, id)
}

func (s *Store) GetBorrowRecord(ctx context.Context, id uuid.UUID) (lending.BorrowRecord, error) {
	return s.q.GetBorrowRecord(ctx, id)
}

func (s *Store) HasOpenBorrow(ctx context.Context, userID uuid.UUID, bookID uuid.UUID) (bool, error) {
	return s.q.HasOpenBorrow(ctx, userID, bookID)
}

func (s *Store) CountOpenBorrowsForBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	return s.q.CountOpenBorrowsForBook(ctx, bookID)
}

func (s *Store) ListBorrowsByUser(
	ctx context.Context,
	userID uuid.UUID,
	activeOnly bool,
	page lending.Page,
) ([]lending.BorrowRecord, int, error) {
	return s.q.ListBorrowsByUser(ctx, userID, activeOnly, page)
}

func (s *Store) ListLapsedBorrows(ctx context.Context, now time.Time) ([]lending.BorrowRecord, error) {
	return s.q.ListLapsedBorrows(ctx, now)
}
