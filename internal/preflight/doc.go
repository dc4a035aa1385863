// Package preflight provides readiness checks for the news server and the
// directories nzbmonkey writes to.
//
// The CLI "nzbmonkey check" command prints every result; the daemon runs
// RunAll once at startup and refuses to schedule crawls when a check fails.
package preflight
