// Package retry provides exponential-backoff retry for operations that can
// fail with retryable storage errors. The circulation and catalog services
// share it for transaction retries and idempotent-read retries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/libralend/lending-core-go/lending"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

// Metric names emitted through the lending.MetricsCollector port.
const (
	RetriesMetric           = "storage_retries_total"
	RetryDelayMetric        = "storage_retry_delay_seconds"
	MaxRetriesReachedMetric = "storage_max_retries_reached_total"
)

const labelOperation = "operation"

var (
	// ErrNilMetricsCollector is returned when a nil metrics collector is provided to WithMetrics.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrEmptyOperationType is returned when an empty operation type is provided to WithMetrics.
	ErrEmptyOperationType = errors.New("operation type must not be empty")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// Func represents a function that can be retried.
type Func func(ctx context.Context) error

// config holds configuration for exponential backoff retry logic.
type config struct {
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	metricsCollector lending.MetricsCollector
	operationType    string
}

// Do executes the provided function, retrying only on retryable storage
// errors (see lending.IsRetryable) up to maxAttempts times.
//
// Retry Schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms (with 30% jitter).
//
// Precondition failures (NotFound, Conflict, Forbidden, Validation) fail fast:
// retrying them cannot change the outcome within the same request. A
// context.DeadlineExceeded is also not retried - retrying timeouts during
// overload creates cascade failures.
func Do(ctx context.Context, fn Func, options ...Option) error {
	cfg := &config{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(cfg); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: baseDelay * 2^(attempt-1)
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))

			// Add jitter to prevent thundering herd
			jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec //math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			recordRetryDelayMetric(ctx, cfg, attempt, backoffDelay)

			select {
			case <-time.After(backoffDelay):
				// Continue with retry
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil // Success
		}

		if !lending.IsRetryable(lastErr) {
			return lastErr // Permanent failure
		}

		recordRetryAttemptMetric(ctx, attempt, cfg, lastErr)
	}

	recordMaxRetriesReachedMetric(ctx, cfg, lastErr)

	return lastErr // Max attempts reached
}

// recordRetryDelayMetric records the actual backoff delay before each retry attempt.
func recordRetryDelayMetric(ctx context.Context, cfg *config, attempt int, backoffDelay time.Duration) {
	if cfg.metricsCollector == nil {
		return
	}

	delayLabels := map[string]string{
		labelOperation:   cfg.operationType,
		"attempt_number": fmt.Sprintf("%d", attempt),
	}

	if contextualCollector, ok := cfg.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, RetryDelayMetric, backoffDelay, delayLabels)
	} else {
		cfg.metricsCollector.RecordDuration(RetryDelayMetric, backoffDelay, delayLabels)
	}
}

// recordRetryAttemptMetric tracks retry attempts by operation type, attempt number, and error type.
func recordRetryAttemptMetric(ctx context.Context, attempt int, cfg *config, lastErr error) {
	if attempt >= cfg.maxAttempts-1 || cfg.metricsCollector == nil {
		return
	}

	retryLabels := map[string]string{
		labelOperation:   cfg.operationType,
		"attempt_number": fmt.Sprintf("%d", attempt+1),
		"error_type":     errorType(lastErr),
	}

	if contextualCollector, ok := cfg.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, RetriesMetric, retryLabels)
	} else {
		cfg.metricsCollector.IncrementCounter(RetriesMetric, retryLabels)
	}
}

// recordMaxRetriesReachedMetric tracks when retry exhaustion occurs with the final error type.
func recordMaxRetriesReachedMetric(ctx context.Context, cfg *config, lastErr error) {
	if cfg.metricsCollector == nil {
		return
	}

	maxRetriesLabels := map[string]string{
		labelOperation:     cfg.operationType,
		"final_error_type": errorType(lastErr),
	}

	if contextualCollector, ok := cfg.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, MaxRetriesReachedMetric, maxRetriesLabels)
	} else {
		cfg.metricsCollector.IncrementCounter(MaxRetriesReachedMetric, maxRetriesLabels)
	}
}

// errorType extracts a string representation of the error type for metrics labeling.
func errorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, lending.ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, lending.ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "context_deadline_exceeded"
	default:
		return "other"
	}
}

// Option configures retry behavior using the functional options pattern.
type Option func(*config) error

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int) Option {
	return func(cfg *config) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		cfg.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, baseDelay*8, etc.
func WithBaseDelay(delay time.Duration) Option {
	return func(cfg *config) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		cfg.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter factor to prevent thundering herd problems.
// Valid range: 0.0 (no jitter) to 1.0 (100% jitter).
func WithJitterFactor(factor float64) Option {
	return func(cfg *config) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		cfg.jitterFactor = factor

		return nil
	}
}

// WithMetrics sets the metrics collector for retry instrumentation.
// Requires operationType to properly label metrics.
func WithMetrics(collector lending.MetricsCollector, operationType string) Option {
	return func(cfg *config) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if operationType == "" {
			return ErrEmptyOperationType
		}

		cfg.metricsCollector = collector
		cfg.operationType = operationType

		return nil
	}
}
