// Package logging assembles structured slog loggers and formatting helpers used
// across hashtools commands.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with the run identifier and storage root. Log output goes to stderr
// so that stdout stays reserved for command results. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
