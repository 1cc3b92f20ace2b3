package helper

import (
	"context"
	"sync"

	"github.com/libralend/lending-core-go/lending"
)

// SpanRecord captures one finished span.
type SpanRecord struct {
	Name        string
	StartAttrs  map[string]string
	Status      string
	FinishAttrs map[string]string
}

// TracingCollectorSpy records every span for later assertions. It implements
// lending.TracingCollector.
type TracingCollectorSpy struct {
	mu       sync.Mutex
	finished []SpanRecord
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

type spySpan struct {
	record SpanRecord
}

func (s *spySpan) SetStatus(status string) {
	s.record.Status = status
}

func (s *spySpan) AddAttribute(key, value string) {
	if s.record.FinishAttrs == nil {
		s.record.FinishAttrs = make(map[string]string)
	}

	s.record.FinishAttrs[key] = value
}

func (t *TracingCollectorSpy) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, lending.SpanContext) {

	return ctx, &spySpan{record: SpanRecord{Name: name, StartAttrs: attrs}}
}

func (t *TracingCollectorSpy) FinishSpan(spanCtx lending.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*spySpan)
	if !ok {
		return
	}

	span.record.Status = status
	for key, value := range attrs {
		span.AddAttribute(key, value)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = append(t.finished, span.record)
}

// FinishedSpans returns a copy of all finished spans in finish order.
func (t *TracingCollectorSpy) FinishedSpans() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	records := make([]SpanRecord, len(t.finished))
	copy(records, t.finished)

	return records
}

// HasSpan checks whether a span with the given name finished with the given status.
func (t *TracingCollectorSpy) HasSpan(name string, status string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, record := range t.finished {
		if record.Name == name && record.Status == status {
			return true
		}
	}

	return false
}

var _ lending.TracingCollector = (*TracingCollectorSpy)(nil)
