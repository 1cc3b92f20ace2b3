// Package helper provides observability test doubles for service and storage
// tests: a slog handler spy that captures records and a metrics collector spy
// that records every measurement.
package helper
