// Package crawl decides which article range to fetch from each monitored
// group and streams the overview rows to a consumer.
//
// Nothing is kept in memory between runs. For every group the crawler asks
// the source for the current bounds, reads the stored cursor, computes a
// window, and streams the overview range in source order. The cursor is
// advanced to the high bound seen at query time only after the whole window
// has been delivered, so an interrupted group is rescanned next run.
//
// Protocol failures are recorded per group and never stop the remaining
// groups. A consumer error or context cancellation stops the whole crawl.
package crawl
