package circulation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libralend/lending-core-go/lending"
)

func Test_SweepOverdue_FlagsLapsedLoans(t *testing.T) {
	// arrange
	store, service, clock := newServiceFixture(t)
	user := seedUser(store, true)

	lapsedBook := seedBookWithCopies(store, 1, 1)
	freshBook := seedBookWithCopies(store, 1, 1)

	lapsed, err := service.BorrowBook(context.Background(), user.ID, lapsedBook.ID, 7)
	require.NoError(t, err)

	clock.Advance(6 * 24 * time.Hour)

	fresh, err := service.BorrowBook(context.Background(), user.ID, freshBook.ID, 30)
	require.NoError(t, err)

	clock.Advance(2 * 24 * time.Hour) // lapsed is now 1 day past due, fresh is not

	// act
	flagged, err := service.SweepOverdue(context.Background())

	// assert
	require.NoError(t, err)
	require.Len(t, flagged, 1, "only the lapsed loan should be flagged")
	assert.Equal(t, lapsed.ID, flagged[0].ID, "the lapsed record gets flagged")
	assert.Equal(t, lending.StatusOverdue, flagged[0].Status, "flagged records carry overdue status")

	stored, getErr := store.GetBorrowRecord(context.Background(), lapsed.ID)
	require.NoError(t, getErr)
	assert.Equal(t, lending.StatusOverdue, stored.Status, "the status change is persisted")
	assert.True(t, stored.IsOpen(), "flagging does not close the record")

	freshStored, getErr := store.GetBorrowRecord(context.Background(), fresh.ID)
	require.NoError(t, getErr)
	assert.Equal(t, lending.StatusBorrowed, freshStored.Status, "loans within their period stay borrowed")
}

func Test_SweepOverdue_IsIdempotent(t *testing.T) {
	// arrange
	store, service, clock := newServiceFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	_, err := service.BorrowBook(context.Background(), user.ID, book.ID, 7)
	require.NoError(t, err)

	clock.Advance(10 * 24 * time.Hour)

	first, err := service.SweepOverdue(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1, "first sweep flags the lapsed loan")

	// act
	second, err := service.SweepOverdue(context.Background())

	// assert
	require.NoError(t, err)
	assert.Empty(t, second, "an immediate second sweep finds nothing to flag")
}

func Test_SweepOverdue_DoesNotTouchAvailability(t *testing.T) {
	// arrange
	store, service, clock := newServiceFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 2, 2)

	_, err := service.BorrowBook(context.Background(), user.ID, book.ID, 7)
	require.NoError(t, err)

	clock.Advance(10 * 24 * time.Hour)

	// act
	_, err = service.SweepOverdue(context.Background())

	// assert
	require.NoError(t, err)

	stored, getErr := store.GetBook(context.Background(), book.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 1, stored.AvailableCopies, "the copy stays lent out until it is returned")
}

func Test_SweepOverdue_IgnoresClosedRecords(t *testing.T) {
	// arrange
	store, service, clock := newServiceFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	record, err := service.BorrowBook(context.Background(), user.ID, book.ID, 7)
	require.NoError(t, err)

	clock.Advance(10 * 24 * time.Hour)

	// late return freezes the overdue verdict and closes the record
	_, err = service.ReturnBook(context.Background(), user.ID, record.ID)
	require.NoError(t, err)

	// act
	flagged, err := service.SweepOverdue(context.Background())

	// assert
	require.NoError(t, err)
	assert.Empty(t, flagged, "closed records are never flagged")
}

func Test_SweepOverdue_ReturnAfterSweepKeepsOverdueVerdict(t *testing.T) {
	// arrange
	store, service, clock := newServiceFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	record, err := service.BorrowBook(context.Background(), user.ID, book.ID, 7)
	require.NoError(t, err)

	clock.Advance(10 * 24 * time.Hour)

	_, err = service.SweepOverdue(context.Background())
	require.NoError(t, err)

	// act
	returned, err := service.ReturnBook(context.Background(), user.ID, record.ID)

	// assert
	require.NoError(t, err, "flagged loans can still be returned")
	assert.Equal(t, lending.StatusOverdue, returned.Status, "the late verdict stays frozen on close")
	assert.False(t, returned.IsOpen(), "the record is closed")

	stored, getErr := store.GetBook(context.Background(), book.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 1, stored.AvailableCopies, "returning a flagged loan restores availability")
}

func Test_SweepOverdue_AppendsAuditEntries(t *testing.T) {
	// arrange
	store, service, clock := newServiceFixture(t)
	user := seedUser(store, true)

	for i := 0; i < 2; i++ {
		book := seedBookWithCopies(store, 1, 1)
		_, err := service.BorrowBook(context.Background(), user.ID, book.ID, 7)
		require.NoError(t, err)
	}

	clock.Advance(10 * 24 * time.Hour)

	// act
	flagged, err := service.SweepOverdue(context.Background())

	// assert
	require.NoError(t, err)
	require.Len(t, flagged, 2)

	overdueEntries := 0
	for _, entry := range store.AuditEntries() {
		if entry.EventType == "OverdueFlagged" {
			overdueEntries++
		}
	}

	assert.Equal(t, 2, overdueEntries, "each flagged record gets one audit entry")
}
