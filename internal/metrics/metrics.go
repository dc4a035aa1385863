package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbra/nzbmonkey/internal/crawl"
	"github.com/mbra/nzbmonkey/internal/nzb"
)

const namespace = "nzbmonkey"

// Recorder holds one run's metrics.
type Recorder struct {
	registry *prometheus.Registry

	groupRecords  *prometheus.CounterVec
	groupFailures *prometheus.CounterVec
	groupCursor   *prometheus.GaugeVec
	groupWindow   *prometheus.GaugeVec
	articles      *prometheus.CounterVec
	entities      *prometheus.CounterVec
	documents     *prometheus.CounterVec
	runDuration   prometheus.Gauge
	lastRun       prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// New builds a recorder with a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		groupRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_records_total",
			Help:      "Overview records streamed per group",
		}, []string{"group"}),
		groupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_failures_total",
			Help:      "Groups that could not be scanned, by failed operation",
		}, []string{"group", "op"}),
		groupCursor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "group_cursor",
			Help:      "Last article number scanned per group",
		}, []string{"group"}),
		groupWindow: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "group_window_articles",
			Help:      "Size of the article window requested per group",
		}, []string{"group"}),
		articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Articles seen by the aggregator, by outcome",
		}, []string{"outcome"}),
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_created_total",
			Help:      "Releases, files and segments created",
		}, []string{"kind"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "NZB documents by release status and write result",
		}, []string{"status", "result"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when every group was scanned and every document written",
		}),
	}
	r.registry.MustRegister(
		r.groupRecords, r.groupFailures, r.groupCursor, r.groupWindow,
		r.articles, r.entities, r.documents,
		r.runDuration, r.lastRun, r.lastSuccess,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveCrawl records per-group outcomes.
func (r *Recorder) ObserveCrawl(report *crawl.Report) {
	if report == nil {
		return
	}
	for _, g := range report.Groups {
		r.groupRecords.WithLabelValues(g.Group).Add(float64(g.Records))
		if g.Err != nil {
			op := "unknown"
			var gerr *crawl.GroupError
			if errors.As(g.Err, &gerr) {
				op = gerr.Op
			}
			r.groupFailures.WithLabelValues(g.Group, op).Inc()
			continue
		}
		cursor := g.Cursor
		if g.Persisted {
			cursor = g.Info.High
		}
		r.groupCursor.WithLabelValues(g.Group).Set(float64(cursor))
		r.groupWindow.WithLabelValues(g.Group).Set(float64(g.Window.Size))
	}
}

// ObserveStats records aggregation counters.
func (r *Recorder) ObserveStats(s nzb.Stats) {
	r.articles.WithLabelValues("considered").Add(float64(s.Considered))
	r.articles.WithLabelValues("discarded").Add(float64(s.Discarded))
	r.entities.WithLabelValues("release").Add(float64(s.ReleasesCreated))
	r.entities.WithLabelValues("file").Add(float64(s.FilesCreated))
	r.entities.WithLabelValues("segment").Add(float64(s.SegmentsAppended))
}

// ObserveDocument records one release's document outcome. result is one of
// written, unchanged, skipped or failed.
func (r *Recorder) ObserveDocument(status nzb.Status, result string) {
	r.documents.WithLabelValues(status.String(), result).Inc()
}

// ObserveRun records the run's end.
func (r *Recorder) ObserveRun(finished time.Time, took time.Duration, success bool) {
	r.runDuration.Set(took.Seconds())
	r.lastRun.Set(float64(finished.Unix()))
	if success {
		r.lastSuccess.Set(1)
	} else {
		r.lastSuccess.Set(0)
	}
}

// WriteTextfile writes the registry to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
