package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/lending"
)

// memTx is the lending.Tx handle over a cloned state. It mirrors the
// conditional-update and constraint semantics of the Postgres engine so
// service tests exercise the same failure paths.
type memTx struct {
	view
}

func (t memTx) InsertAuthor(_ context.Context, author lending.Author) error {
	t.s.authors[author.ID] = author
	return nil
}

func (t memTx) UpdateAuthor(_ context.Context, author lending.Author) error {
	if _, ok := t.s.authors[author.ID]; !ok {
		return lending.ErrAuthorNotFound
	}

	t.s.authors[author.ID] = author

	return nil
}

func (t memTx) DeleteAuthor(_ context.Context, id uuid.UUID) error {
	if _, ok := t.s.authors[id]; !ok {
		return lending.ErrAuthorNotFound
	}

	delete(t.s.authors, id)

	return nil
}

func (t memTx) InsertBook(_ context.Context, book lending.Book) error {
	if err := t.checkISBNUnique(book.ISBN, book.ID); err != nil {
		return err
	}

	t.s.books[book.ID] = book

	return nil
}

func (t memTx) UpdateBook(_ context.Context, book lending.Book) error {
	if _, ok := t.s.books[book.ID]; !ok {
		return lending.ErrBookNotFound
	}

	if err := t.checkISBNUnique(book.ISBN, book.ID); err != nil {
		return err
	}

	t.s.books[book.ID] = book

	return nil
}

func (t memTx) DeleteBook(_ context.Context, id uuid.UUID) error {
	if _, ok := t.s.books[id]; !ok {
		return lending.ErrBookNotFound
	}

	delete(t.s.books, id)

	return nil
}

func (t memTx) checkISBNUnique(isbn string, excludeID uuid.UUID) error {
	if isbn == "" {
		return nil
	}

	for _, other := range t.s.books {
		if other.ID != excludeID && other.ISBN == isbn {
			return lending.ErrISBNAlreadyExists
		}
	}

	return nil
}

func (t memTx) InsertBorrowRecord(_ context.Context, record lending.BorrowRecord) error {
	// partial unique index: one open record per user and book
	for _, other := range t.s.records {
		if other.UserID == record.UserID && other.BookID == record.BookID && other.IsOpen() {
			return lending.ErrAlreadyBorrowed
		}
	}

	t.s.records[record.ID] = record

	return nil
}

func (t memTx) CloseBorrowRecord(_ context.Context, id uuid.UUID, returnDate time.Time, status lending.BorrowStatus) error {
	record, ok := t.s.records[id]
	if !ok {
		return lending.ErrBorrowRecordNotFound
	}

	if !record.IsOpen() {
		return lending.ErrAlreadyReturned
	}

	record.ReturnDate = &returnDate
	record.Status = status
	record.UpdatedAt = returnDate
	t.s.records[id] = record

	return nil
}

func (t memTx) MarkOverdue(_ context.Context, ids []uuid.UUID, now time.Time) error {
	for _, id := range ids {
		record, ok := t.s.records[id]
		if !ok || !record.IsOpen() {
			continue
		}

		record.Status = lending.StatusOverdue
		record.UpdatedAt = now
		t.s.records[id] = record
	}

	return nil
}

func (t memTx) DecrementAvailableCopies(_ context.Context, bookID uuid.UUID) (bool, error) {
	book, ok := t.s.books[bookID]
	if !ok || book.AvailableCopies <= 0 {
		return false, nil
	}

	book.AvailableCopies--
	t.s.books[bookID] = book

	return true, nil
}

func (t memTx) IncrementAvailableCopies(_ context.Context, bookID uuid.UUID) error {
	book, ok := t.s.books[bookID]
	if !ok {
		return lending.ErrBookNotFound
	}

	if book.AvailableCopies >= book.TotalCopies {
		return lending.ErrInvalidCopyCounts
	}

	book.AvailableCopies++
	t.s.books[bookID] = book

	return nil
}

func (t memTx) AppendAuditEntry(_ context.Context, entry lending.AuditEntry) error {
	t.s.audit = append(t.s.audit, entry)
	return nil
}
