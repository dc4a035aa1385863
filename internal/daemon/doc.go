// Package daemon coordinates the long-running nzbmonkeyd process.
//
// It holds a flock-based instance lock, schedules crawl runs from the
// configured cron expression and never lets two runs overlap. Each run goes
// through the same indexer entry point as the CLI, so the per-run lock and
// cursor store are shared with interactive invocations.
package daemon
