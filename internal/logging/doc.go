// Package logging assembles structured slog loggers and formatting helpers used
// across visiogen.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code can automatically tag log
// lines with run IDs, stage names, and correlation IDs. Logs go to stderr so
// command output on stdout stays machine readable. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
