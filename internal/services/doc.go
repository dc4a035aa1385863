// Package services defines shared utilities consumed by the crawler, the
// indexer, and the protocol client.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, newsgroup names, and component
//     names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into configuration problems (fatal, exit 2) and protocol or transient
//     failures (retried on the next run).
//
// Protocol integrations live in subpackages (see services/nntp).
package services
