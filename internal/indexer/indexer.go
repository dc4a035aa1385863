package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mbra/nzbmonkey/internal/article"
	"github.com/mbra/nzbmonkey/internal/config"
	"github.com/mbra/nzbmonkey/internal/crawl"
	"github.com/mbra/nzbmonkey/internal/logging"
	"github.com/mbra/nzbmonkey/internal/metrics"
	"github.com/mbra/nzbmonkey/internal/nzb"
	"github.com/mbra/nzbmonkey/internal/services"
	"github.com/mbra/nzbmonkey/internal/state"
	"github.com/mbra/nzbmonkey/internal/subject"
)

// Options adjusts a single run. The zero value crawls the configured groups
// with the configured window and persistence.
type Options struct {
	// Groups replaces cfg.Crawl.Groups when non-empty.
	Groups []string
	// Delta overrides the window for every group when HasDelta is set.
	Delta    int64
	HasDelta bool
	// NoPersist leaves cursors untouched.
	NoPersist bool
	// DryRun renders documents without writing them and implies NoPersist.
	DryRun bool
	// Source replaces the news server connection.
	Source crawl.Source
	// Now supplies the fallback document timestamp and run clock.
	Now func() time.Time
}

// Result summarises a run.
type Result struct {
	RunID     string
	Started   time.Time
	Duration  time.Duration
	Report    *crawl.Report
	Stats     nzb.Stats
	Index     *nzb.Index
	Documents []Document
}

// FailedDocuments returns documents that could not be written.
func (r *Result) FailedDocuments() []Document {
	var out []Document
	for _, d := range r.Documents {
		if d.Err != nil {
			out = append(out, d)
		}
	}
	return out
}

// Err joins group and document failures. A run can succeed overall while
// Err is non-nil; callers decide whether partial output is acceptable.
func (r *Result) Err() error {
	var errs []error
	if r.Report != nil {
		if err := r.Report.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range r.FailedDocuments() {
		errs = append(errs, d.Err)
	}
	return errors.Join(errs...)
}

// Run performs one crawl-and-index pass. The returned error covers failures
// that stop the run (configuration, lock, store, connection, cancellation);
// per-group and per-document failures are reported through Result.Err.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (result *Result, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	result = &Result{RunID: uuid.NewString(), Started: now()}
	ctx = services.WithRunID(ctx, result.RunID)
	ctx = services.WithComponent(ctx, "indexer")
	log := logging.WithContext(ctx, logging.NewComponentLogger(logger, "indexer"))

	groups := opts.Groups
	if len(groups) == 0 {
		groups = cfg.Crawl.Groups
	}
	if len(groups) == 0 {
		return result, fmt.Errorf("%w: no groups to crawl; set crawl.groups or pass group names", services.ErrConfiguration)
	}

	parser, err := subject.NewParser(cfg.Matching.SubjectPattern)
	if err != nil {
		return result, err
	}
	writer, err := newDocumentWriter(cfg, opts.DryRun, now, log)
	if err != nil {
		return result, err
	}

	lock, err := acquireLock(cfg.LockPath())
	if err != nil {
		return result, err
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			log.Warn("failed to release run lock", logging.Error(unlockErr))
		}
	}()

	store, err := state.Open(cfg)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "indexer", "open state", cfg.StatePath(), err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close state store: %w", closeErr)
		}
	}()

	source := opts.Source
	if source == nil {
		if err := cfg.RequireServer(); err != nil {
			return result, err
		}
		server, err := newServerSource(ctx, cfg.Server, logger)
		if err != nil {
			return result, err
		}
		defer func() {
			if quitErr := server.Close(); quitErr != nil {
				log.Debug("quit failed", logging.Error(quitErr))
			}
		}()
		source = server
	}

	window := crawl.WindowParams{
		DefaultDelta: cfg.Crawl.DefaultDelta,
		MaxWindow:    cfg.Crawl.MaxWindow,
		Override:     opts.Delta,
		HasOverride:  opts.HasDelta,
	}
	crawler := crawl.New(source, store, crawl.Options{
		Window:            window,
		Persist:           cfg.Crawl.Persist && !opts.NoPersist && !opts.DryRun,
		Concurrency:       cfg.Crawl.Concurrency,
		RequestsPerSecond: cfg.Crawl.RequestsPerSecond,
		Logger:            logger,
	})
	builder := nzb.NewBuilder(parser, nzb.MatchersFor(cfg.Matching.Mode))

	log.Info("run started",
		logging.Int("groups", len(groups)),
		logging.Bool("dry_run", opts.DryRun),
	)

	report, err := crawler.Crawl(ctx, groups, func(rec article.Record) error {
		builder.Add(rec)
		return nil
	})
	result.Report = report
	result.Stats = builder.Stats()
	result.Index = builder.Index()
	if err != nil {
		result.Duration = now().Sub(result.Started)
		return result, err
	}

	result.Documents = writer.writeAll(builder.Index())
	result.Duration = now().Sub(result.Started)

	exportMetrics(cfg, log, result, now())
	logSummary(log, result)
	return result, nil
}

func exportMetrics(cfg *config.Config, log *slog.Logger, result *Result, finished time.Time) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	rec := metrics.New()
	rec.ObserveCrawl(result.Report)
	rec.ObserveStats(result.Stats)
	for _, d := range result.Documents {
		rec.ObserveDocument(d.Status, d.Result)
	}
	rec.ObserveRun(finished, result.Duration, result.Err() == nil)
	if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logging.WarnWithContext(log, "metrics export failed", "metrics_export_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "metrics for this run are missing"),
			logging.String(logging.FieldErrorHint, "check metrics.textfile directory permissions"),
		)
	}
}

func logSummary(log *slog.Logger, result *Result) {
	counts := make(map[string]int)
	for _, d := range result.Documents {
		counts[d.Result]++
	}
	attrs := []logging.Attr{
		logging.Int("articles_seen", result.Stats.Seen),
		logging.Int("articles_discarded", result.Stats.Discarded),
		logging.Int("releases", len(result.Documents)),
		logging.Int("documents_written", counts[ResultWritten]),
		logging.Int("documents_unchanged", counts[ResultUnchanged]),
		logging.Int("documents_skipped", counts[ResultSkipped]),
		logging.Int("documents_failed", counts[ResultFailed]),
		logging.Duration("duration", result.Duration),
	}
	if result.Report != nil {
		failed := result.Report.Failed()
		attrs = append(attrs, logging.Int("groups_failed", len(failed)))
		if len(failed) > 0 {
			names := make([]string, 0, len(failed))
			for _, g := range failed {
				names = append(names, g.Group)
			}
			logging.WarnWithContext(log, "some groups were not scanned", "run_groups_failed",
				logging.Any("groups", names),
				logging.String(logging.FieldImpact, "releases from these groups are missing this run"),
				logging.String(logging.FieldErrorHint, "cursors were not advanced; the next run retries them"),
			)
		}
	}
	log.Info("run finished", logging.Args(attrs...)...)
}
