package catalog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libralend/lending-core-go/catalog"
	"github.com/libralend/lending-core-go/lending"
)

func Test_CreateAuthor_Succeeds(t *testing.T) {
	// arrange
	store, service := newCatalogFixture(t)

	// act
	author, err := service.CreateAuthor(context.Background(), catalog.NewAuthorParams{
		Name: "Ursula K. Le Guin",
		Bio:  "Wrote the Earthsea cycle.",
	})

	// assert
	require.NoError(t, err, "create should succeed")
	assert.NotEqual(t, uuid.Nil, author.ID, "a fresh id is assigned")
	assert.Equal(t, "Ursula K. Le Guin", author.Name)
	assert.Equal(t, fixedNow, author.CreatedAt, "creation timestamp comes from the clock")

	stored, getErr := store.GetAuthor(context.Background(), author.ID)
	require.NoError(t, getErr)
	assert.Equal(t, author, stored, "the author is persisted as returned")
}

func Test_CreateAuthor_InvalidName(t *testing.T) {
	// arrange
	_, service := newCatalogFixture(t)

	invalidNames := []string{"", "   ", strings.Repeat("x", lending.MaxNameLength+1)}

	for _, name := range invalidNames {
		// act
		_, err := service.CreateAuthor(context.Background(), catalog.NewAuthorParams{Name: name})

		// assert
		assert.ErrorIs(t, err, lending.ErrInvalidAuthorName, "name %q should be rejected", name)
		assert.ErrorIs(t, err, lending.ErrValidation, "name rejections are validation errors")
	}
}

func Test_CreateAuthor_BioTooLong(t *testing.T) {
	// arrange
	_, service := newCatalogFixture(t)

	// act
	_, err := service.CreateAuthor(context.Background(), catalog.NewAuthorParams{
		Name: "Some Author",
		Bio:  strings.Repeat("x", lending.MaxBioLength+1),
	})

	// assert
	assert.ErrorIs(t, err, lending.ErrInvalidAuthorBio, "oversized bio should be rejected")
}

func Test_GetAuthor_Unknown(t *testing.T) {
	// arrange
	_, service := newCatalogFixture(t)

	// act
	_, err := service.GetAuthor(context.Background(), uuid.New())

	// assert
	assert.ErrorIs(t, err, lending.ErrAuthorNotFound, "unknown author should be reported")
	assert.ErrorIs(t, err, lending.ErrNotFound, "unknown author is a not-found error")
}

func Test_UpdateAuthor_PartialUpdate(t *testing.T) {
	// arrange
	store, service := newCatalogFixture(t)
	author := seedAuthor(store, "Old Name")

	// act
	updated, err := service.UpdateAuthor(context.Background(), author.ID, catalog.UpdateAuthorParams{
		Name: strPtr("New Name"),
	})

	// assert
	require.NoError(t, err, "update should succeed")
	assert.Equal(t, "New Name", updated.Name, "provided field is applied")
	assert.Equal(t, author.Bio, updated.Bio, "untouched field keeps its value")

	stored, getErr := store.GetAuthor(context.Background(), author.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "New Name", stored.Name, "the change is persisted")
}

func Test_UpdateAuthor_NoFields(t *testing.T) {
	// arrange
	store, service := newCatalogFixture(t)
	author := seedAuthor(store, "Some Author")

	// act
	_, err := service.UpdateAuthor(context.Background(), author.ID, catalog.UpdateAuthorParams{})

	// assert
	assert.ErrorIs(t, err, lending.ErrNoFieldsToUpdate, "empty updates should be rejected")
}

func Test_UpdateAuthor_RevalidatesProvidedFields(t *testing.T) {
	// arrange
	store, service := newCatalogFixture(t)
	author := seedAuthor(store, "Some Author")

	// act
	_, err := service.UpdateAuthor(context.Background(), author.ID, catalog.UpdateAuthorParams{
		Name: strPtr(""),
	})

	// assert
	assert.ErrorIs(t, err, lending.ErrInvalidAuthorName, "blank replacement name should be rejected")

	stored, getErr := store.GetAuthor(context.Background(), author.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "Some Author", stored.Name, "a rejected update must not change the author")
}

func Test_UpdateAuthor_Unknown(t *testing.T) {
	// arrange
	_, service := newCatalogFixture(t)

	// act
	_, err := service.UpdateAuthor(context.Background(), uuid.New(), catalog.UpdateAuthorParams{
		Name: strPtr("New Name"),
	})

	// assert
	assert.ErrorIs(t, err, lending.ErrAuthorNotFound, "unknown author should be reported")
}

func Test_DeleteAuthor_Succeeds(t *testing.T) {
	// arrange
	store, service := newCatalogFixture(t)
	author := seedAuthor(store, "Some Author")

	// act
	err := service.DeleteAuthor(context.Background(), author.ID)

	// assert
	require.NoError(t, err, "delete should succeed")

	_, getErr := store.GetAuthor(context.Background(), author.ID)
	assert.ErrorIs(t, getErr, lending.ErrAuthorNotFound, "the author is gone")
}

func Test_DeleteAuthor_BlockedWhileOwningBooks(t *testing.T) {
	// arrange
	store, service := newCatalogFixture(t)
	author := seedAuthor(store, "Some Author")
	seedBook(store, author.ID, "Some Book", "")

	// act
	err := service.DeleteAuthor(context.Background(), author.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrAuthorHasBooks, "authors with books cannot be deleted")
	assert.ErrorIs(t, err, lending.ErrConflict, "blocked deletes are conflicts")

	_, getErr := store.GetAuthor(context.Background(), author.ID)
	assert.NoError(t, getErr, "the author must still exist")
}

func Test_DeleteAuthor_Unknown(t *testing.T) {
	// arrange
	_, service := newCatalogFixture(t)

	// act
	err := service.DeleteAuthor(context.Background(), uuid.New())

	// assert
	assert.ErrorIs(t, err, lending.ErrAuthorNotFound, "unknown author should be reported")
}
