package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/lending"
)

// MemStore is an in-memory lending.Store.
type MemStore struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	authors map[uuid.UUID]lending.Author
	books   map[uuid.UUID]lending.Book
	users   map[uuid.UUID]lending.User
	records map[uuid.UUID]lending.BorrowRecord
	audit   []lending.AuditEntry
}

// New creates an empty MemStore.
func New() *MemStore {
	return &MemStore{state: newState()}
}

func newState() *state {
	return &state{
		authors: make(map[uuid.UUID]lending.Author),
		books:   make(map[uuid.UUID]lending.Book),
		users:   make(map[uuid.UUID]lending.User),
		records: make(map[uuid.UUID]lending.BorrowRecord),
	}
}

func (s *state) clone() *state {
	cloned := newState()
	for id, author := range s.authors {
		cloned.authors[id] = author
	}
	for id, book := range s.books {
		cloned.books[id] = book
	}
	for id, user := range s.users {
		cloned.users[id] = user
	}
	for id, record := range s.records {
		cloned.records[id] = record
	}
	cloned.audit = append(cloned.audit, s.audit...)

	return cloned
}

// WithinTx serializes transactions with the store mutex and applies fn to a
// clone of the state, swapping the clone in only when fn succeeds.
func (s *MemStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx lending.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := s.state.clone()
	if err := fn(ctx, memTx{view{cloned}}); err != nil {
		return err
	}

	s.state = cloned

	return nil
}

// SeedAuthor puts an author into the store directly, bypassing validation.
func (s *MemStore) SeedAuthor(author lending.Author) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.authors[author.ID] = author
}

// SeedBook puts a book into the store directly, bypassing validation.
func (s *MemStore) SeedBook(book lending.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.books[book.ID] = book
}

// SeedUser puts a user into the store directly.
func (s *MemStore) SeedUser(user lending.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[user.ID] = user
}

// SeedBorrowRecord puts a borrow record into the store directly.
func (s *MemStore) SeedBorrowRecord(record lending.BorrowRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.records[record.ID] = record
}

// AuditEntries returns a copy of the appended audit trail.
func (s *MemStore) AuditEntries() []lending.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]lending.AuditEntry, len(s.state.audit))
	copy(entries, s.state.audit)

	return entries
}

var (
	_ lending.Store = (*MemStore)(nil)
	_ lending.Tx    = memTx{}
)

// Direct reads lock the store and delegate to a view over the current state.

func (s *MemStore) GetAuthor(ctx context.Context, id uuid.UUID) (lending.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.GetAuthor(ctx, id)
}

func (s *MemStore) ListAuthors(ctx context.Context, page lending.Page) ([]lending.Author, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.ListAuthors(ctx, page)
}

func (s *MemStore) CountBooksByAuthor(ctx context.Context, authorID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.CountBooksByAuthor(ctx, authorID)
}

func (s *MemStore) GetBook(ctx context.Context, id uuid.UUID) (lending.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.GetBook(ctx, id)
}

func (s *MemStore) FindBookByISBN(ctx context.Context, isbn string) (lending.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.FindBookByISBN(ctx, isbn)
}

func (s *MemStore) SearchBooks(ctx context.Context, search lending.BookSearch, page lending.Page) ([]lending.Book, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.SearchBooks(ctx, search, page)
}

func (s *MemStore) GetUser(ctx context.Context, id uuid.UUID) (lending.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.GetUser(ctx, id)
}

func (s *MemStore) GetBorrowRecord(ctx context.Context, id uuid.UUID) (lending.BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.GetBorrowRecord(ctx, id)
}

func (s *MemStore) HasOpenBorrow(ctx context.Context, userID uuid.UUID, bookID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.HasOpenBorrow(ctx, userID, bookID)
}

func (s *MemStore) CountOpenBorrowsForBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.CountOpenBorrowsForBook(ctx, bookID)
}

func (s *MemStore) ListBorrowsByUser(
	ctx context.Context,
	userID uuid.UUID,
	activeOnly bool,
	page lending.Page,
) ([]lending.BorrowRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.ListBorrowsByUser(ctx, userID, activeOnly, page)
}

func (s *MemStore) ListLapsedBorrows(ctx context.Context, now time.Time) ([]lending.BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.state}.ListLapsedBorrows(ctx, now)
}

// view implements lending.Reader over one state. It assumes the caller holds
// the store mutex or owns the state exclusively.
type view struct {
	s *state
}

func (v view) GetAuthor(_ context.Context, id uuid.UUID) (lending.Author, error) {
	author, ok := v.s.authors[id]
	if !ok {
		return lending.Author{}, lending.ErrAuthorNotFound
	}

	return author, nil
}

func (v view) ListAuthors(_ context.Context, page lending.Page) ([]lending.Author, int, error) {
	all := make([]lending.Author, 0, len(v.s.authors))
	for _, author := range v.s.authors {
		all = append(all, author)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	return paginate(all, page), len(all), nil
}

func (v view) CountBooksByAuthor(_ context.Context, authorID uuid.UUID) (int, error) {
	count := 0
	for _, book := range v.s.books {
		if book.AuthorID == authorID {
			count++
		}
	}

	return count, nil
}

func (v view) GetBook(_ context.Context, id uuid.UUID) (lending.Book, error) {
	book, ok := v.s.books[id]
	if !ok {
		return lending.Book{}, lending.ErrBookNotFound
	}

	return book, nil
}

func (v view) FindBookByISBN(_ context.Context, isbn string) (lending.Book, error) {
	for _, book := range v.s.books {
		if book.ISBN != "" && book.ISBN == isbn {
			return book, nil
		}
	}

	return lending.Book{}, lending.ErrBookNotFound
}

func (v view) SearchBooks(_ context.Context, search lending.BookSearch, page lending.Page) ([]lending.Book, int, error) {
	var matched []lending.Book
	for _, book := range v.s.books {
		if v.matches(book, search) {
			matched = append(matched, book)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Title != matched[j].Title {
			return matched[i].Title < matched[j].Title
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	return paginate(matched, page), len(matched), nil
}

func (v view) matches(book lending.Book, search lending.BookSearch) bool {
	if search.Title != "" && !containsFold(book.Title, search.Title) {
		return false
	}

	if search.ISBN != "" && book.ISBN != search.ISBN {
		return false
	}

	if search.AvailableOnly && !book.IsAvailable() {
		return false
	}

	if search.AuthorName != "" {
		author, ok := v.s.authors[book.AuthorID]
		if !ok || !containsFold(author.Name, search.AuthorName) {
			return false
		}
	}

	return true
}

func (v view) GetUser(_ context.Context, id uuid.UUID) (lending.User, error) {
	user, ok := v.s.users[id]
	if !ok {
		return lending.User{}, lending.ErrUserNotFound
	}

	return user, nil
}

func (v view) GetBorrowRecord(_ context.Context, id uuid.UUID) (lending.BorrowRecord, error) {
	record, ok := v.s.records[id]
	if !ok {
		return lending.BorrowRecord{}, lending.ErrBorrowRecordNotFound
	}

	return record, nil
}

func (v view) HasOpenBorrow(_ context.Context, userID uuid.UUID, bookID uuid.UUID) (bool, error) {
	for _, record := range v.s.records {
		if record.UserID == userID && record.BookID == bookID && record.IsOpen() {
			return true, nil
		}
	}

	return false, nil
}

func (v view) CountOpenBorrowsForBook(_ context.Context, bookID uuid.UUID) (int, error) {
	count := 0
	for _, record := range v.s.records {
		if record.BookID == bookID && record.IsOpen() {
			count++
		}
	}

	return count, nil
}

func (v view) ListBorrowsByUser(
	_ context.Context,
	userID uuid.UUID,
	activeOnly bool,
	page lending.Page,
) ([]lending.BorrowRecord, int, error) {

	var matched []lending.BorrowRecord
	for _, record := range v.s.records {
		if record.UserID != userID {
			continue
		}
		if activeOnly && !record.IsOpen() {
			continue
		}
		matched = append(matched, record)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].BorrowDate.Equal(matched[j].BorrowDate) {
			return matched[i].BorrowDate.After(matched[j].BorrowDate)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return paginate(matched, page), len(matched), nil
}

func (v view) ListLapsedBorrows(_ context.Context, now time.Time) ([]lending.BorrowRecord, error) {
	var matched []lending.BorrowRecord
	for _, record := range v.s.records {
		if record.IsOverdueAt(now) && record.Status != lending.StatusOverdue {
			matched = append(matched, record)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].DueDate.Before(matched[j].DueDate)
	})

	return matched, nil
}

func paginate[T any](all []T, page lending.Page) []T {
	offset := page.Offset()
	if offset >= len(all) {
		return nil
	}

	end := offset + page.Size
	if end > len(all) {
		end = len(all)
	}

	result := make([]T, end-offset)
	copy(result, all[offset:end])

	return result
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
