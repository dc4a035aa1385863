// Package state persists per-group crawl cursors in SQLite.
//
// Each row is keyed by (group, field) and holds an integer value, so the
// crawler can keep the last scanned article id alongside any other per-group
// counters without schema changes. The store is opened once per run and
// closed on every exit path; writes are immediately durable, so an aborted
// run keeps whatever cursors it already committed.
package state
