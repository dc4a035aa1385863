// Package article defines the overview record that flows from the crawl
// stage into subject parsing and aggregation, together with the codec for
// the tab-separated overview (XOVER) line format.
//
// Records are immutable once produced: every field is copied out of the
// wire line and tagged with the group the overview was requested from.
package article
