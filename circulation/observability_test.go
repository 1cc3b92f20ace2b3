package circulation_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libralend/lending-core-go/circulation"
	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/testutil/helper"
	"github.com/libralend/lending-core-go/testutil/memstore"
)

func newObservedFixture(t *testing.T) (*memstore.MemStore, *circulation.Service, *helper.LogHandlerSpy, *helper.MetricsCollectorSpy) {
	t.Helper()

	store := memstore.New()
	logSpy := helper.NewLogHandlerSpy(false)
	metricsSpy := helper.NewMetricsCollectorSpy()
	clock := newFakeClock()

	service, err := circulation.NewService(store,
		circulation.WithClock(clock.Now),
		circulation.WithLogger(slog.New(logSpy)),
		circulation.WithMetrics(metricsSpy),
	)
	require.NoError(t, err, "service construction should succeed")

	return store, service, logSpy, metricsSpy
}

func Test_BorrowBook_LogsAndMeasuresSuccess(t *testing.T) {
	// arrange
	store, service, logSpy, metricsSpy := newObservedFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	// act
	_, err := service.BorrowBook(context.Background(), user.ID, book.ID, lending.DefaultLoanDays)

	// assert
	require.NoError(t, err)

	assert.True(t, logSpy.HasLogWithMessage(slog.LevelInfo, "book borrowed"),
		"successful borrow should be logged at info level")
	assert.True(t, logSpy.HasLogWithAttr(slog.LevelInfo, "book borrowed",
		circulation.LogAttrOperation, circulation.BorrowBookOperation),
		"the log entry should carry the operation label")

	assert.True(t, metricsSpy.HasDuration(circulation.OperationDurationMetric),
		"operation duration should be recorded")
	assert.Zero(t, metricsSpy.CounterCount(circulation.OperationErrorsMetric, nil),
		"a successful borrow must not increment the error counter")
}

func Test_BorrowBook_LogsAndCountsFailure(t *testing.T) {
	// arrange
	store, service, logSpy, metricsSpy := newObservedFixture(t)
	book := seedBookWithCopies(store, 1, 1)

	// act
	_, err := service.BorrowBook(context.Background(), uuid.New(), book.ID, lending.DefaultLoanDays)

	// assert
	require.ErrorIs(t, err, lending.ErrUserNotFound)

	assert.True(t, logSpy.HasLogWithMessage(slog.LevelError, "circulation operation failed"),
		"failed borrow should be logged at error level")
	assert.Equal(t, 1, metricsSpy.CounterCount(circulation.OperationErrorsMetric,
		map[string]string{circulation.LogAttrOperation: circulation.BorrowBookOperation}),
		"the error counter should carry the operation label")
	assert.True(t, metricsSpy.HasDuration(circulation.OperationDurationMetric),
		"duration is recorded for failed operations too")
}

func Test_ReturnBook_LogsSuccess(t *testing.T) {
	// arrange
	store, service, logSpy, _ := newObservedFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	record, err := service.BorrowBook(context.Background(), user.ID, book.ID, lending.DefaultLoanDays)
	require.NoError(t, err)

	// act
	_, err = service.ReturnBook(context.Background(), user.ID, record.ID)

	// assert
	require.NoError(t, err)
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelInfo, "book returned"),
		"successful return should be logged at info level")
	assert.True(t, logSpy.HasLogWithAttr(slog.LevelInfo, "book returned",
		circulation.LogAttrStatus, string(lending.StatusReturned)),
		"the log entry should carry the frozen status")
}

func newTracedFixture(t *testing.T) (*memstore.MemStore, *circulation.Service, *helper.TracingCollectorSpy) {
	t.Helper()

	store := memstore.New()
	tracingSpy := helper.NewTracingCollectorSpy()
	clock := newFakeClock()

	service, err := circulation.NewService(store,
		circulation.WithClock(clock.Now),
		circulation.WithTracing(tracingSpy),
	)
	require.NoError(t, err, "service construction should succeed")

	return store, service, tracingSpy
}

func Test_BorrowBook_FinishesSpanWithOkStatus(t *testing.T) {
	// arrange
	store, service, tracingSpy := newTracedFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	// act
	_, err := service.BorrowBook(context.Background(), user.ID, book.ID, lending.DefaultLoanDays)

	// assert
	require.NoError(t, err)

	spans := tracingSpy.FinishedSpans()
	require.Len(t, spans, 1, "one span should be finished per operation")
	assert.Equal(t, "circulation.BorrowBook", spans[0].Name)
	assert.Equal(t, "ok", spans[0].Status)
	assert.Equal(t, circulation.BorrowBookOperation, spans[0].StartAttrs[circulation.LogAttrOperation],
		"the span should carry the operation attribute")
}

func Test_BorrowBook_FinishesSpanWithConflictStatus(t *testing.T) {
	// arrange
	store, service, tracingSpy := newTracedFixture(t)
	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 0)

	// act
	_, err := service.BorrowBook(context.Background(), user.ID, book.ID, lending.DefaultLoanDays)

	// assert
	require.ErrorIs(t, err, lending.ErrBookNotAvailable)
	assert.True(t, tracingSpy.HasSpan("circulation.BorrowBook", "conflict"),
		"a conflict rejection should finish the span with conflict status")
}

func Test_ReturnBook_FinishesSpanWithErrorStatus(t *testing.T) {
	// arrange
	store, service, tracingSpy := newTracedFixture(t)
	user := seedUser(store, true)

	// act
	_, err := service.ReturnBook(context.Background(), user.ID, uuid.New())

	// assert
	require.ErrorIs(t, err, lending.ErrBorrowRecordNotFound)
	assert.True(t, tracingSpy.HasSpan("circulation.ReturnBook", "error"),
		"a not-found failure should finish the span with error status")
}

func Test_SweepOverdue_FinishesSpan(t *testing.T) {
	// arrange
	_, service, tracingSpy := newTracedFixture(t)

	// act
	_, err := service.SweepOverdue(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, tracingSpy.HasSpan("circulation.SweepOverdue", "ok"))
}

func Test_GetUserBorrowHistory_FinishesSpan(t *testing.T) {
	// arrange
	store, service, tracingSpy := newTracedFixture(t)
	user := seedUser(store, true)

	// act
	_, err := service.GetUserBorrowHistory(context.Background(), user.ID, false, lending.DefaultPage())

	// assert
	require.NoError(t, err)
	assert.True(t, tracingSpy.HasSpan("circulation.GetUserBorrowHistory", "ok"))
}

func Test_BorrowBook_LogsThroughContextualLogger(t *testing.T) {
	// arrange
	store := memstore.New()
	logSpy := helper.NewLogHandlerSpy(false)
	clock := newFakeClock()

	service, err := circulation.NewService(store,
		circulation.WithClock(clock.Now),
		circulation.WithContextualLogger(slog.New(logSpy)),
	)
	require.NoError(t, err)

	user := seedUser(store, true)
	book := seedBookWithCopies(store, 1, 1)

	// act
	_, err = service.BorrowBook(context.Background(), user.ID, book.ID, lending.DefaultLoanDays)

	// assert
	require.NoError(t, err)
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelInfo, "book borrowed"),
		"a contextual logger alone should receive the success log")
}

func Test_SweepOverdue_LogsRecordCount(t *testing.T) {
	// arrange
	_, service, logSpy, metricsSpy := newObservedFixture(t)

	// act
	_, err := service.SweepOverdue(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelInfo, "overdue sweep completed"),
		"the sweep outcome should be logged even when nothing was flagged")
	assert.True(t, logSpy.HasLogWithAttr(slog.LevelInfo, "overdue sweep completed",
		circulation.LogAttrRecordCount, "0"),
		"the log entry should carry the flagged record count")
	assert.True(t, metricsSpy.HasDuration(circulation.OperationDurationMetric),
		"sweep duration should be recorded")
}
