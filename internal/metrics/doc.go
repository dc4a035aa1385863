// Package metrics exports per-run counters in the Prometheus text format.
//
// nzbmonkey runs as a short-lived job, so there is no scrape endpoint: each
// run fills a private registry and, when a textfile path is configured,
// writes it for node_exporter's textfile collector.
package metrics
