package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/retry"
)

// NewBookParams carries the input for CreateBook.
type NewBookParams struct {
	Title           string
	ISBN            string // optional
	PublishedDate   *time.Time
	AuthorID        uuid.UUID
	TotalCopies     int
	AvailableCopies int
}

// UpdateBookParams carries a partial update: only non-nil fields are applied.
// Setting ISBN to an empty string clears it.
type UpdateBookParams struct {
	Title           *string
	ISBN            *string
	PublishedDate   *time.Time
	AuthorID        *uuid.UUID
	TotalCopies     *int
	AvailableCopies *int
}

// CreateBook validates and inserts a new book owned by an existing author.
func (s *Service) CreateBook(ctx context.Context, params NewBookParams) (lending.Book, error) {
	start := time.Now()

	if err := s.validateBookFields(params.Title, params.ISBN, params.TotalCopies, params.AvailableCopies); err != nil {
		return lending.Book{}, err
	}

	book := lending.Book{
		ID:              uuid.New(),
		Title:           params.Title,
		ISBN:            params.ISBN,
		PublishedDate:   params.PublishedDate,
		AuthorID:        params.AuthorID,
		TotalCopies:     params.TotalCopies,
		AvailableCopies: params.AvailableCopies,
		CreatedAt:       s.now(),
	}

	err := s.store.WithinTx(ctx, func(txCtx context.Context, tx lending.Tx) error {
		if _, getErr := tx.GetAuthor(txCtx, params.AuthorID); getErr != nil {
			return getErr
		}

		if params.ISBN != "" {
			if conflictErr := s.checkISBNFree(txCtx, tx, params.ISBN, uuid.Nil); conflictErr != nil {
				return conflictErr
			}
		}

		// A concurrent insert slipping past the pre-check is caught by the
		// unique constraint and surfaced as ErrISBNAlreadyExists.
		return tx.InsertBook(txCtx, book)
	})

	s.observe(CreateBookOperation, start, err)

	if err != nil {
		s.logError(CreateBookOperation, err)
		return lending.Book{}, err
	}

	s.logOperation("book created", logAttrOperation, CreateBookOperation, logAttrBookID, book.ID.String())

	return book, nil
}

// GetBook fetches one book by id. The read is idempotent, so a transient
// storage failure is retried once before the error is surfaced.
func (s *Service) GetBook(ctx context.Context, id uuid.UUID) (lending.Book, error) {
	var book lending.Book

	err := retry.Do(ctx, func(retryCtx context.Context) error {
		var getErr error
		book, getErr = s.store.GetBook(retryCtx, id)

		return getErr
	}, retry.WithMaxAttempts(2))

	return book, err
}

// SearchBooks returns one page of books matching the search filters plus the
// total count over the filtered set. The read is idempotent, so a transient
// storage failure is retried once before the error is surfaced.
func (s *Service) SearchBooks(ctx context.Context, search lending.BookSearch, page lending.Page) ([]lending.Book, int, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}

	var books []lending.Book
	var total int

	err := retry.Do(ctx, func(retryCtx context.Context) error {
		var searchErr error
		books, total, searchErr = s.store.SearchBooks(retryCtx, search, page)

		return searchErr
	}, retry.WithMaxAttempts(2))

	return books, total, err
}

// UpdateBook applies a partial update to a book. Every provided field is
// revalidated against the merged result: ISBN uniqueness excludes the book
// being updated, author existence is reverified when the author changes, and
// the copy-count invariant is checked on the merged counters.
func (s *Service) UpdateBook(ctx context.Context, id uuid.UUID, params UpdateBookParams) (lending.Book, error) {
	start := time.Now()

	if params.Title == nil && params.ISBN == nil && params.PublishedDate == nil &&
		params.AuthorID == nil && params.TotalCopies == nil && params.AvailableCopies == nil {
		return lending.Book{}, lending.ErrNoFieldsToUpdate
	}

	var book lending.Book

	err := s.store.WithinTx(ctx, func(txCtx context.Context, tx lending.Tx) error {
		found, getErr := tx.GetBook(txCtx, id)
		if getErr != nil {
			return getErr
		}

		if mergeErr := s.mergeBookUpdate(txCtx, tx, &found, params); mergeErr != nil {
			return mergeErr
		}

		if updateErr := tx.UpdateBook(txCtx, found); updateErr != nil {
			return updateErr
		}

		book = found

		return nil
	})

	s.observe(UpdateBookOperation, start, err)

	if err != nil {
		s.logError(UpdateBookOperation, err)
		return lending.Book{}, err
	}

	s.logOperation("book updated", logAttrOperation, UpdateBookOperation, logAttrBookID, id.String())

	return book, nil
}

// DeleteBook removes a book. Deletion is rejected with
// lending.ErrBookHasOpenBorrows while any borrow record on the book is open.
func (s *Service) DeleteBook(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	err := s.store.WithinTx(ctx, func(txCtx context.Context, tx lending.Tx) error {
		if _, getErr := tx.GetBook(txCtx, id); getErr != nil {
			return getErr
		}

		openCount, countErr := tx.CountOpenBorrowsForBook(txCtx, id)
		if countErr != nil {
			return countErr
		}

		if openCount > 0 {
			return lending.ErrBookHasOpenBorrows
		}

		return tx.DeleteBook(txCtx, id)
	})

	s.observe(DeleteBookOperation, start, err)

	if err != nil {
		s.logError(DeleteBookOperation, err)
		return err
	}

	s.logOperation("book deleted", logAttrOperation, DeleteBookOperation, logAttrBookID, id.String())

	return nil
}

// mergeBookUpdate applies the provided fields onto the loaded book and
// revalidates the merged result.
func (s *Service) mergeBookUpdate(ctx context.Context, tx lending.Tx, book *lending.Book, params UpdateBookParams) error {
	if params.Title != nil {
		if err := lending.ValidateBookTitle(*params.Title); err != nil {
			return err
		}

		book.Title = *params.Title
	}

	if params.ISBN != nil {
		if err := lending.ValidateISBN(*params.ISBN); err != nil {
			return err
		}

		if *params.ISBN != "" && *params.ISBN != book.ISBN {
			if err := s.checkISBNFree(ctx, tx, *params.ISBN, book.ID); err != nil {
				return err
			}
		}

		book.ISBN = *params.ISBN
	}

	if params.PublishedDate != nil {
		book.PublishedDate = params.PublishedDate
	}

	if params.AuthorID != nil && *params.AuthorID != book.AuthorID {
		if _, err := tx.GetAuthor(ctx, *params.AuthorID); err != nil {
			return err
		}

		book.AuthorID = *params.AuthorID
	}

	if params.TotalCopies != nil {
		book.TotalCopies = *params.TotalCopies
	}

	if params.AvailableCopies != nil {
		book.AvailableCopies = *params.AvailableCopies
	}

	// Invariant check runs on the merged counters, so lowering total below
	// the untouched available count is rejected too.
	return lending.ValidateCopyCounts(book.TotalCopies, book.AvailableCopies)
}

// checkISBNFree rejects with ErrISBNAlreadyExists when another book already
// carries the given ISBN. The excluded id skips the book being updated.
func (s *Service) checkISBNFree(ctx context.Context, tx lending.Tx, isbn string, excludeID uuid.UUID) error {
	existing, err := tx.FindBookByISBN(ctx, isbn)

	switch {
	case errors.Is(err, lending.ErrBookNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == excludeID:
		return nil
	default:
		return lending.ErrISBNAlreadyExists
	}
}

func (s *Service) validateBookFields(title string, isbn string, total int, available int) error {
	if err := lending.ValidateBookTitle(title); err != nil {
		return err
	}

	if err := lending.ValidateISBN(isbn); err != nil {
		return err
	}

	return lending.ValidateCopyCounts(total, available)
}
