// Package indexer runs one complete crawl-and-index pass.
//
// A run takes the run lock, opens the cursor store, crawls the configured
// groups through the NNTP client, aggregates every overview row into
// releases, writes one NZB document per release and exports run metrics.
// The store, the news server session and the lock are released on every
// exit path, including cancellation.
//
// IndexFile performs the same aggregation and writing for an overview dump
// on disk, without touching the server or the cursor store.
package indexer
