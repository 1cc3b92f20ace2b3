package lending

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookSearch filters a paginated catalog search. Zero values mean "no filter".
type BookSearch struct {
	Title         string // case-insensitive substring match
	AuthorName    string // case-insensitive substring match on the owning author
	ISBN          string // exact match
	AvailableOnly bool
}

// Reader is the read side of the storage port. All list operations return the
// page of rows plus the total count over the filtered set before pagination.
type Reader interface {
	GetAuthor(ctx context.Context, id uuid.UUID) (Author, error)
	ListAuthors(ctx context.Context, page Page) ([]Author, int, error)
	CountBooksByAuthor(ctx context.Context, authorID uuid.UUID) (int, error)

	GetBook(ctx context.Context, id uuid.UUID) (Book, error)
	FindBookByISBN(ctx context.Context, isbn string) (Book, error)
	SearchBooks(ctx context.Context, search BookSearch, page Page) ([]Book, int, error)

	GetUser(ctx context.Context, id uuid.UUID) (User, error)

	GetBorrowRecord(ctx context.Context, id uuid.UUID) (BorrowRecord, error)
	HasOpenBorrow(ctx context.Context, userID uuid.UUID, bookID uuid.UUID) (bool, error)
	CountOpenBorrowsForBook(ctx context.Context, bookID uuid.UUID) (int, error)
	ListBorrowsByUser(ctx context.Context, userID uuid.UUID, activeOnly bool, page Page) ([]BorrowRecord, int, error)
	ListLapsedBorrows(ctx context.Context, now time.Time) ([]BorrowRecord, error)
}

// Writer is the write side of the storage port. Implementations must report
// ErrAuthorNotFound / ErrBookNotFound / ErrBorrowRecordNotFound when an
// update or delete affects no rows, and map storage-level uniqueness races
// to the matching Conflict sentinel.
type Writer interface {
	InsertAuthor(ctx context.Context, author Author) error
	UpdateAuthor(ctx context.Context, author Author) error
	DeleteAuthor(ctx context.Context, id uuid.UUID) error

	InsertBook(ctx context.Context, book Book) error
	UpdateBook(ctx context.Context, book Book) error
	DeleteBook(ctx context.Context, id uuid.UUID) error

	InsertBorrowRecord(ctx context.Context, record BorrowRecord) error

	// CloseBorrowRecord freezes an open record to the given status. It must
	// guard on the record still being open, so a concurrent close loses the
	// race and gets ErrAlreadyReturned instead of double-closing.
	CloseBorrowRecord(ctx context.Context, id uuid.UUID, returnDate time.Time, status BorrowStatus) error
	MarkOverdue(ctx context.Context, ids []uuid.UUID, now time.Time) error

	// DecrementAvailableCopies is the inventory race guard: a conditional
	// update that only succeeds while available_copies > 0. It reports false,
	// without error, when no row was affected - the caller must translate
	// that into ErrBookNotAvailable and abort the transaction.
	DecrementAvailableCopies(ctx context.Context, bookID uuid.UUID) (bool, error)
	IncrementAvailableCopies(ctx context.Context, bookID uuid.UUID) error

	AppendAuditEntry(ctx context.Context, entry AuditEntry) error
}

// Tx is the handle passed to a transactional closure. Reads through a Tx
// observe the transaction's own writes.
type Tx interface {
	Reader
	Writer
}

// Store is the transactional persistence port for the lending core.
//
// WithinTx runs fn inside one storage transaction: commit if fn returns nil,
// roll back and propagate the error otherwise. The transaction and its
// connection are released on every exit path. Direct Reader calls on the
// Store run outside any transaction.
type Store interface {
	Reader

	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
