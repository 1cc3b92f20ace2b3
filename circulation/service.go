package circulation

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/retry"
)

var (
	// ErrNilStore is returned when no storage port is provided.
	ErrNilStore = errors.New("store must not be nil")

	// ErrNilClock is returned when a nil clock function is provided to WithClock.
	ErrNilClock = errors.New("clock must not be nil")
)

// Service is the borrow lifecycle engine. It orchestrates borrow, return,
// history and overdue-sweep operations against the lending.Store port and
// carries the ambient concerns: clock, logging, metrics, tracing, retry policy.
type Service struct {
	store        lending.Store
	clock        func() time.Time
	logger       lending.Logger
	ctxLogger    lending.ContextualLogger
	metrics      lending.MetricsCollector
	tracing      lending.TracingCollector
	retryOptions []retry.Option
}

// Option defines a functional option for configuring the Service.
type Option func(*Service) error

// WithClock sets the time source. Defaults to time.Now; tests inject a fake
// clock to pin due-date and overdue semantics.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) error {
		if clock == nil {
			return ErrNilClock
		}

		s.clock = clock

		return nil
	}
}

// WithLogger sets the logger for the Service.
//
// Debug level: per-operation timing (development use)
// Info level: operation outcomes, record counts (production-safe)
// Error level: failures that abort an operation.
func WithLogger(logger lending.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger for the Service. When
// configured it takes precedence over the plain logger, so log records can
// carry trace correlation from the operation context.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(s *Service) error {
		s.ctxLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Service.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(s *Service) error {
		s.metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Service. Every operation
// runs inside one span named after the operation; the span status reflects
// the outcome.
func WithTracing(collector lending.TracingCollector) Option {
	return func(s *Service) error {
		s.tracing = collector
		return nil
	}
}

// WithRetryOptions sets a custom retry configuration for mutating operations.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(s *Service) error {
		s.retryOptions = opts
		return nil
	}
}

// NewService creates a new lifecycle engine with optional configuration.
func NewService(store lending.Store, options ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	s := &Service{
		store: store,
		clock: time.Now,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// now returns the current instant in UTC from the configured clock.
func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// retryOptionsFor appends the per-operation metrics option to the configured retry options.
func (s *Service) retryOptionsFor(operation string) []retry.Option {
	opts := s.retryOptions

	if s.metrics != nil {
		opts = append(opts[:len(opts):len(opts)], retry.WithMetrics(s.metrics, operation))
	}

	return opts
}

// startSpan opens a span for one operation if a tracing collector is
// configured. The returned context carries the span for downstream
// correlation; callers must pass every exit through finishSpan.
func (s *Service) startSpan(ctx context.Context, operation string) (context.Context, lending.SpanContext) {
	if s.tracing == nil {
		return ctx, nil
	}

	return s.tracing.StartSpan(ctx, "circulation."+operation, map[string]string{LogAttrOperation: operation})
}

// finishSpan closes the span with a status derived from the operation outcome.
func (s *Service) finishSpan(span lending.SpanContext, err error) {
	if s.tracing == nil || span == nil {
		return
	}

	s.tracing.FinishSpan(span, spanStatus(err), nil)
}

// spanStatus maps an operation outcome to a span status string.
func spanStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, lending.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

// logOperation logs operational information at info level. The contextual
// logger wins when both are configured.
func (s *Service) logOperation(ctx context.Context, msg string, args ...any) {
	switch {
	case s.ctxLogger != nil:
		s.ctxLogger.InfoContext(ctx, msg, args...)
	case s.logger != nil:
		s.logger.Info(msg, args...)
	}
}

// logError logs a failed operation at error level.
func (s *Service) logError(ctx context.Context, operation string, err error) {
	switch {
	case s.ctxLogger != nil:
		s.ctxLogger.ErrorContext(ctx, "circulation operation failed", LogAttrOperation, operation, LogAttrError, err.Error())
	case s.logger != nil:
		s.logger.Error("circulation operation failed", LogAttrOperation, operation, LogAttrError, err.Error())
	}
}

// observe records operation duration and outcome metrics if a collector is configured.
func (s *Service) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}

	labels := map[string]string{LogAttrOperation: operation}
	s.metrics.RecordDuration(OperationDurationMetric, time.Since(start), labels)

	if err != nil {
		s.metrics.IncrementCounter(OperationErrorsMetric, labels)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
