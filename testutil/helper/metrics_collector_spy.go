package helper

import (
	"context"
	"sync"
	"time"

	"github.com/libralend/lending-core-go/lending"
)

// DurationRecord captures one RecordDuration call.
type DurationRecord struct {
	Metric   string
	Duration time.Duration
	Labels   map[string]string
}

// CounterRecord captures one IncrementCounter call.
type CounterRecord struct {
	Metric string
	Labels map[string]string
}

// ValueRecord captures one RecordValue call.
type ValueRecord struct {
	Metric string
	Value  float64
	Labels map[string]string
}

// MetricsCollectorSpy records every measurement for later assertions. It
// implements both lending.MetricsCollector and lending.ContextualMetricsCollector.
type MetricsCollectorSpy struct {
	mu        sync.Mutex
	durations []DurationRecord
	counters  []CounterRecord
	values    []ValueRecord
}

// NewMetricsCollectorSpy creates a new MetricsCollectorSpy.
func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

func (m *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, DurationRecord{Metric: metric, Duration: duration, Labels: labels})
}

func (m *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, CounterRecord{Metric: metric, Labels: labels})
}

func (m *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = append(m.values, ValueRecord{Metric: metric, Value: value, Labels: labels})
}

func (m *MetricsCollectorSpy) RecordDurationContext(
	_ context.Context,
	metric string,
	duration time.Duration,
	labels map[string]string,
) {
	m.RecordDuration(metric, duration, labels)
}

func (m *MetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	m.IncrementCounter(metric, labels)
}

func (m *MetricsCollectorSpy) RecordValueContext(_ context.Context, metric string, value float64, labels map[string]string) {
	m.RecordValue(metric, value, labels)
}

// Durations returns a copy of all captured duration records.
func (m *MetricsCollectorSpy) Durations() []DurationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]DurationRecord, len(m.durations))
	copy(records, m.durations)

	return records
}

// CounterCount returns how often the given counter was incremented with a
// matching label set. Labels given as nil match any labels.
func (m *MetricsCollectorSpy) CounterCount(metric string, labels map[string]string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, record := range m.counters {
		if record.Metric != metric {
			continue
		}

		if labels != nil && !labelsMatch(record.Labels, labels) {
			continue
		}

		count++
	}

	return count
}

// HasDuration checks whether the given duration metric was recorded at least once.
func (m *MetricsCollectorSpy) HasDuration(metric string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range m.durations {
		if record.Metric == metric {
			return true
		}
	}

	return false
}

func labelsMatch(got map[string]string, want map[string]string) bool {
	for key, value := range want {
		if got[key] != value {
			return false
		}
	}

	return true
}

var (
	_ lending.MetricsCollector           = (*MetricsCollectorSpy)(nil)
	_ lending.ContextualMetricsCollector = (*MetricsCollectorSpy)(nil)
)
