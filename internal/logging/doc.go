// Package logging assembles the structured slog loggers used across fecclean.
//
// It owns the console and JSON handlers, level parsing, and output routing,
// and exposes context helpers so batch code can tag every line with the run
// ID, pass, and column being cleaned. A no-op logger is provided for tests
// and for library callers that do not want output.
package logging
