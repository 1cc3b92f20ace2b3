package catalog

import (
	"errors"
	"time"

	"github.com/libralend/lending-core-go/lending"
)

// ErrNilStore is returned when no storage port is provided.
var ErrNilStore = errors.New("store must not be nil")

// Operation type identifiers, used for observability labels.
const (
	CreateAuthorOperation = "CreateAuthor"
	UpdateAuthorOperation = "UpdateAuthor"
	DeleteAuthorOperation = "DeleteAuthor"
	CreateBookOperation   = "CreateBook"
	UpdateBookOperation   = "UpdateBook"
	DeleteBookOperation   = "DeleteBook"
)

// Metric names emitted through the lending.MetricsCollector port.
const (
	OperationDurationMetric = "catalog_operation_duration_seconds"
	OperationErrorsMetric   = "catalog_operation_errors_total"
)

// Structured log attribute keys.
const (
	logAttrOperation = "operation"
	logAttrError     = "error"
	logAttrAuthorID  = "author_id"
	logAttrBookID    = "book_id"
)

// Service is the catalog store service.
type Service struct {
	store   lending.Store
	clock   func() time.Time
	logger  lending.Logger
	metrics lending.MetricsCollector
}

// Option defines a functional option for configuring the Service.
type Option func(*Service) error

// WithClock sets the time source used for creation timestamps. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) error {
		if clock == nil {
			return errors.New("clock must not be nil")
		}

		s.clock = clock

		return nil
	}
}

// WithLogger sets the logger for the Service.
func WithLogger(logger lending.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
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

// NewService creates a new catalog service with optional configuration.
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

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func (s *Service) logOperation(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Service) logError(operation string, err error) {
	if s.logger != nil {
		s.logger.Error("catalog operation failed", logAttrOperation, operation, logAttrError, err.Error())
	}
}

func (s *Service) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}

	labels := map[string]string{logAttrOperation: operation}
	s.metrics.RecordDuration(OperationDurationMetric, time.Since(start), labels)

	if err != nil {
		s.metrics.IncrementCounter(OperationErrorsMetric, labels)
	}
}
