// Package logging assembles structured slog loggers and formatting helpers used
// across nzbmonkey.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so crawl code can automatically
// tag log lines with run IDs, newsgroups, and component names. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
