// Package logging assembles structured slog loggers and formatting helpers used
// across articast.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, categories, and item keys automatically. WarnWithContext
// and ErrorWithContext enforce the event_type / error_hint / impact fields on
// every failure line. The package also provides a no-op logger for tests.
package logging
