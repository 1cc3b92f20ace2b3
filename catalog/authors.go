package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/retry"
)

// NewAuthorParams carries the input for CreateAuthor.
type NewAuthorParams struct {
	Name string
	Bio  string
}

// UpdateAuthorParams carries a partial update: only non-nil fields are applied.
type UpdateAuthorParams struct {
	Name *string
	Bio  *string
}

// CreateAuthor validates and inserts a new author.
func (s *Service) CreateAuthor(ctx context.Context, params NewAuthorParams) (lending.Author, error) {
	start := time.Now()

	if err := lending.ValidateAuthorName(params.Name); err != nil {
		return lending.Author{}, err
	}

	if err := lending.ValidateAuthorBio(params.Bio); err != nil {
		return lending.Author{}, err
	}

	author := lending.Author{
		ID:        uuid.New(),
		Name:      params.Name,
		Bio:       params.Bio,
		CreatedAt: s.now(),
	}

	err := s.store.WithinTx(ctx, func(txCtx context.Context, tx lending.Tx) error {
		return tx.InsertAuthor(txCtx, author)
	})

	s.observe(CreateAuthorOperation, start, err)

	if err != nil {
		s.logError(CreateAuthorOperation, err)
		return lending.Author{}, err
	}

	s.logOperation("author created", logAttrOperation, CreateAuthorOperation, logAttrAuthorID, author.ID.String())

	return author, nil
}

// GetAuthor fetches one author by id. The read is idempotent, so a transient
// storage failure is retried once before the error is surfaced.
func (s *Service) GetAuthor(ctx context.Context, id uuid.UUID) (lending.Author, error) {
	var author lending.Author

	err := retry.Do(ctx, func(retryCtx context.Context) error {
		var getErr error
		author, getErr = s.store.GetAuthor(retryCtx, id)

		return getErr
	}, retry.WithMaxAttempts(2))

	return author, err
}

// ListAuthors returns one page of authors plus the total author count. The
// read is idempotent, so a transient storage failure is retried once before
// the error is surfaced.
func (s *Service) ListAuthors(ctx context.Context, page lending.Page) ([]lending.Author, int, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}

	var authors []lending.Author
	var total int

	err := retry.Do(ctx, func(retryCtx context.Context) error {
		var listErr error
		authors, total, listErr = s.store.ListAuthors(retryCtx, page)

		return listErr
	}, retry.WithMaxAttempts(2))

	return authors, total, err
}

// UpdateAuthor applies a partial update to an author. Only fields present in
// params are changed; every provided field is revalidated.
func (s *Service) UpdateAuthor(ctx context.Context, id uuid.UUID, params UpdateAuthorParams) (lending.Author, error) {
	start := time.Now()

	if params.Name == nil && params.Bio == nil {
		return lending.Author{}, lending.ErrNoFieldsToUpdate
	}

	var author lending.Author

	err := s.store.WithinTx(ctx, func(txCtx context.Context, tx lending.Tx) error {
		found, getErr := tx.GetAuthor(txCtx, id)
		if getErr != nil {
			return getErr
		}

		if params.Name != nil {
			if validateErr := lending.ValidateAuthorName(*params.Name); validateErr != nil {
				return validateErr
			}

			found.Name = *params.Name
		}

		if params.Bio != nil {
			if validateErr := lending.ValidateAuthorBio(*params.Bio); validateErr != nil {
				return validateErr
			}

			found.Bio = *params.Bio
		}

		if updateErr := tx.UpdateAuthor(txCtx, found); updateErr != nil {
			return updateErr
		}

		author = found

		return nil
	})

	s.observe(UpdateAuthorOperation, start, err)

	if err != nil {
		s.logError(UpdateAuthorOperation, err)
		return lending.Author{}, err
	}

	s.logOperation("author updated", logAttrOperation, UpdateAuthorOperation, logAttrAuthorID, id.String())

	return author, nil
}

// DeleteAuthor removes an author. Deletion is rejected with
// lending.ErrAuthorHasBooks while the author still owns any book - the
// schema-level cascade is documentation of intent, not a reachable path.
func (s *Service) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	err := s.store.WithinTx(ctx, func(txCtx context.Context, tx lending.Tx) error {
		if _, getErr := tx.GetAuthor(txCtx, id); getErr != nil {
			return getErr
		}

		bookCount, countErr := tx.CountBooksByAuthor(txCtx, id)
		if countErr != nil {
			return countErr
		}

		if bookCount > 0 {
			return lending.ErrAuthorHasBooks
		}

		return tx.DeleteAuthor(txCtx, id)
	})

	s.observe(DeleteAuthorOperation, start, err)

	if err != nil {
		s.logError(DeleteAuthorOperation, err)
		return err
	}

	s.logOperation("author deleted", logAttrOperation, DeleteAuthorOperation, logAttrAuthorID, id.String())

	return nil
}
