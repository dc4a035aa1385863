package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mbra/nzbmonkey/internal/article"
	"github.com/mbra/nzbmonkey/internal/logging"
	"github.com/mbra/nzbmonkey/internal/services"
)

// FieldLastArticle is the cursor field holding the last scanned article id.
const FieldLastArticle = "last_article"

// Source is the protocol collaborator.
type Source interface {
	Group(ctx context.Context, name string) (GroupInfo, error)
	// Overview streams rows for the inclusive range [start, end] in source
	// order. It must stop and return fn's error when fn fails.
	Overview(ctx context.Context, group string, start, end int64, fn func(article.Record) error) error
}

// CursorStore persists per-group values.
type CursorStore interface {
	Get(ctx context.Context, group, field string, def int64) (int64, error)
	Set(ctx context.Context, group, field string, value int64) error
}

// Consumer receives every streamed record. Returning an error stops the crawl.
type Consumer func(article.Record) error

// Options configures a Crawler.
type Options struct {
	Window WindowParams
	// Persist writes the new cursor after each fully streamed window.
	Persist bool
	// Concurrency is the number of groups crawled at once. Values below 2
	// crawl sequentially in list order.
	Concurrency int
	// RequestsPerSecond limits protocol calls. 0 disables the limit.
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// GroupError records a protocol or store failure for one group.
type GroupError struct {
	Group string
	Op    string
	Err   error
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("group %s: %s: %v", e.Group, e.Op, e.Err)
}

func (e *GroupError) Unwrap() error { return e.Err }

// GroupReport describes what happened to one group.
type GroupReport struct {
	Group     string
	Info      GroupInfo
	Cursor    int64
	Window    Window
	Records   int64
	Skipped   bool
	Persisted bool
	Duration  time.Duration
	Err       error
}

// Failed reports whether the group hit a protocol or store error.
func (g GroupReport) Failed() bool {
	return g.Err != nil
}

// Report collects per-group outcomes in the caller's group order.
type Report struct {
	Groups []GroupReport
}

// Failed returns the groups that could not be scanned.
func (r *Report) Failed() []GroupReport {
	var out []GroupReport
	for _, g := range r.Groups {
		if g.Failed() {
			out = append(out, g)
		}
	}
	return out
}

// Records sums streamed records across groups.
func (r *Report) Records() int64 {
	var n int64
	for _, g := range r.Groups {
		n += g.Records
	}
	return n
}

// Err joins every group failure, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, g := range r.Groups {
		if g.Err != nil {
			errs = append(errs, g.Err)
		}
	}
	return errors.Join(errs...)
}

// Crawler runs one crawl pass at a time.
type Crawler struct {
	source  Source
	store   CursorStore
	opts    Options
	logger  *slog.Logger
	limiter *rate.Limiter
}

// New wires a crawler.
func New(source Source, store CursorStore, opts Options) *Crawler {
	c := &Crawler{
		source: source,
		store:  store,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "crawl"),
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// fatalError marks a stop that must end the whole crawl.
type fatalError struct{ err error }

func (f fatalError) Error() string { return f.err.Error() }
func (f fatalError) Unwrap() error { return f.err }

// Crawl scans groups and feeds every record to fn. The returned report always
// lists every group that was attempted. The error is non-nil only when fn
// failed or ctx was cancelled; per-group failures live in the report.
func (c *Crawler) Crawl(ctx context.Context, groups []string, fn Consumer) (*Report, error) {
	report := &Report{Groups: make([]GroupReport, len(groups))}
	for i, g := range groups {
		report.Groups[i].Group = g
	}

	if c.opts.Concurrency < 2 || len(groups) < 2 {
		for i, g := range groups {
			if err := ctx.Err(); err != nil {
				return trimReport(report, i), err
			}
			if err := c.crawlGroup(ctx, g, fn, &report.Groups[i]); err != nil {
				return trimReport(report, i+1), unwrapFatal(err)
			}
		}
		return report, nil
	}

	var mu sync.Mutex
	serialized := func(rec article.Record) error {
		mu.Lock()
		defer mu.Unlock()
		return fn(rec)
	}

	attempted := make([]bool, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.opts.Concurrency)
	for i, g := range groups {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			attempted[i] = true
			return c.crawlGroup(egCtx, g, serialized, &report.Groups[i])
		})
	}
	if err := eg.Wait(); err != nil {
		return dropUnattempted(report, attempted), unwrapFatal(err)
	}
	return report, nil
}

// dropUnattempted removes groups a fatal stop kept from starting, preserving
// the order of the rest.
func dropUnattempted(r *Report, attempted []bool) *Report {
	kept := r.Groups[:0]
	for i, g := range r.Groups {
		if attempted[i] {
			kept = append(kept, g)
		}
	}
	r.Groups = kept
	return r
}

func unwrapFatal(err error) error {
	var fatal fatalError
	if errors.As(err, &fatal) {
		return fatal.err
	}
	return err
}

func trimReport(r *Report, n int) *Report {
	r.Groups = r.Groups[:n]
	return r
}

// crawlGroup handles one group. It returns an error only for fatal stops.
func (c *Crawler) crawlGroup(ctx context.Context, group string, fn Consumer, rep *GroupReport) error {
	started := time.Now()
	defer func() { rep.Duration = time.Since(started) }()

	ctx = services.WithGroup(ctx, group)
	log := logging.WithContext(ctx, c.logger)

	fail := func(op string, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fatalError{err: ctxErr}
		}
		rep.Err = &GroupError{Group: group, Op: op, Err: services.Wrap(services.ErrProtocol, "crawl", op, group, err)}
		logging.WarnWithContext(log, "group scan failed", "crawl_group_failed",
			logging.String("op", op),
			logging.Error(err),
			logging.String(logging.FieldImpact, "group skipped this run, cursor unchanged"),
			logging.String(logging.FieldErrorHint, "the next run retries from the stored cursor"),
		)
		return nil
	}

	if err := c.wait(ctx); err != nil {
		return fatalError{err: err}
	}
	info, err := c.source.Group(ctx, group)
	if err != nil {
		return fail("group", err)
	}
	rep.Info = info

	cursor, err := c.store.Get(ctx, group, FieldLastArticle, 0)
	if err != nil {
		return fail("read cursor", err)
	}
	rep.Cursor = cursor

	window := ComputeWindow(info, cursor, c.opts.Window)
	rep.Window = window
	if window.Behind {
		logging.WarnWithContext(log, "stored cursor is ahead of server", "crawl_cursor_ahead",
			logging.Int64("cursor", cursor),
			logging.Int64("high", info.High),
			logging.Alert("cursor_ahead"),
			logging.String(logging.FieldImpact, "no articles fetched for this group"),
			logging.String(logging.FieldErrorHint, "reset the cursor with 'nzbmonkey state reset'"),
		)
	}
	if window.Empty() {
		rep.Skipped = true
		log.Debug("nothing new", logging.Int64("cursor", cursor), logging.Int64("high", info.High))
		return nil
	}

	log.Info("fetching overview",
		logging.Int64("start", window.Start),
		logging.Int64("end", window.End),
		logging.Int64("window", window.Size),
		logging.Bool("clamped", window.Clamped),
	)

	if err := c.wait(ctx); err != nil {
		return fatalError{err: err}
	}
	var consumerErr error
	err = c.source.Overview(ctx, group, window.Start, window.End, func(rec article.Record) error {
		rec.Group = group
		if err := fn(rec); err != nil {
			consumerErr = err
			return err
		}
		rep.Records++
		return nil
	})
	if consumerErr != nil {
		return fatalError{err: consumerErr}
	}
	if err != nil {
		return fail("overview", err)
	}
	if err := ctx.Err(); err != nil {
		return fatalError{err: err}
	}

	if c.opts.Persist {
		if err := c.store.Set(ctx, group, FieldLastArticle, info.High); err != nil {
			return fail("write cursor", err)
		}
		rep.Persisted = true
	}
	log.Info("group scanned",
		logging.Int64("records", rep.Records),
		logging.Int64("cursor", info.High),
		logging.Bool("persisted", rep.Persisted),
	)
	return nil
}

func (c *Crawler) wait(ctx context.Context) error {
	if c.limiter == nil {
		return ctx.Err()
	}
	return c.limiter.Wait(ctx)
}
