package circulation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libralend/lending-core-go/lending"
)

func Test_ReturnBook_OnTime_FreezesReturnedStatus(t *testing.T) {
	// arrange
	store, service, clock := newServiceFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	record, err := service.BorrowBook(context.Background(), user.ID, book.ID, lending.DefaultLoanDays)
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)

	// act
	returned, err := service.ReturnBook(context.Background(), user.ID, record.ID)

	// assert
	require.NoError(t, err, "return should succeed")
	assert.Equal(t, lending.StatusReturned, returned.Status, "on-time return freezes returned status")
	require.NotNil(t, returned.ReturnDate, "return date must be set")
	assert.Equal(t, clock.Now(), *returned.ReturnDate, "return date comes from the clock")

	stored, getErr := store.GetBook(context.Background(), book.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 1, stored.AvailableCopies, "the copy goes back into circulation")

	// the frozen verdict must not flip once the due date passes
	clock.Advance(90 * 24 * time.Hour)
	current, getErr := store.GetBorrowRecord(context.Background(), record.ID)
	require.NoError(t, getErr)
	assert.Equal(t, lending.StatusReturned, current.Status, "status stays returned after the due date passes")
	assert.False(t, current.IsOverdueAt(clock.Now()), "closed records are never overdue")
}

func Test_ReturnBook_Late_FreezesOverdueStatus(t *testing.T) {
	// arrange
	store, service, clock := newServiceFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	record, err := service.BorrowBook(context.Background(), user.ID, book.ID, 7)
	require.NoError(t, err)

	clock.Advance(8 * 24 * time.Hour)

	// act
	returned, err := service.ReturnBook(context.Background(), user.ID, record.ID)

	// assert
	require.NoError(t, err, "late return still succeeds")
	assert.Equal(t, lending.StatusOverdue, returned.Status, "late return freezes overdue status")

	stored, getErr := store.GetBook(context.Background(), book.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 1, stored.AvailableCopies, "late returns still restore availability")
}

func Test_ReturnBook_NotOwner(t *testing.T) {
	// arrange
	store, service, _ := newServiceFixture(t)
	owner := seedUser(store, true)
	other := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	record, err := service.BorrowBook(context.Background(), owner.ID, book.ID, lending.DefaultLoanDays)
	require.NoError(t, err)

	// act
	_, err = service.ReturnBook(context.Background(), other.ID, record.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrNotRecordOwner, "only the borrower may return")
	assert.ErrorIs(t, err, lending.ErrForbidden, "ownership violations are forbidden errors")

	current, getErr := store.GetBorrowRecord(context.Background(), record.ID)
	require.NoError(t, getErr)
	assert.True(t, current.IsOpen(), "the record must stay open")
}

func Test_ReturnBook_AlreadyReturned(t *testing.T) {
	// arrange
	store, service, _ := newServiceFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	record, err := service.BorrowBook(context.Background(), user.ID, book.ID, lending.DefaultLoanDays)
	require.NoError(t, err)

	_, err = service.ReturnBook(context.Background(), user.ID, record.ID)
	require.NoError(t, err)

	// act
	_, err = service.ReturnBook(context.Background(), user.ID, record.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrAlreadyReturned, "a closed record cannot be returned again")
	assert.ErrorIs(t, err, lending.ErrConflict, "double returns are conflicts")

	stored, getErr := store.GetBook(context.Background(), book.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 1, stored.AvailableCopies, "a double return must not increment availability twice")
}

func Test_ReturnBook_UnknownRecord(t *testing.T) {
	// arrange
	store, service, _ := newServiceFixture(t)
	user := seedUser(store, true)

	// act
	_, err := service.ReturnBook(context.Background(), user.ID, uuid.New())

	// assert
	assert.ErrorIs(t, err, lending.ErrBorrowRecordNotFound, "unknown record should be rejected")
}

func Test_ReturnBook_AppendsAuditEntry(t *testing.T) {
	// arrange
	store, service, _ := newServiceFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	record, err := service.BorrowBook(context.Background(), user.ID, book.ID, lending.DefaultLoanDays)
	require.NoError(t, err)

	// act
	_, err = service.ReturnBook(context.Background(), user.ID, record.ID)

	// assert
	require.NoError(t, err)

	entries := store.AuditEntries()
	require.Len(t, entries, 2, "borrow and return should each append one entry")
	assert.Equal(t, "ReturnRecorded", entries[1].EventType, "the second entry records the return")
}

func Test_BorrowReturn_RoundTripRestoresAvailability(t *testing.T) {
	// arrange
	store, service, _ := newServiceFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 4, 4)

	// act
	record, err := service.BorrowBook(context.Background(), user.ID, book.ID, lending.DefaultLoanDays)
	require.NoError(t, err)

	_, err = service.ReturnBook(context.Background(), user.ID, record.ID)
	require.NoError(t, err)

	// assert
	stored, getErr := store.GetBook(context.Background(), book.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 4, stored.AvailableCopies, "a borrow and return round trip restores the count")
}
