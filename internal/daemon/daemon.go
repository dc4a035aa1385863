package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"github.com/mbra/nzbmonkey/internal/config"
	"github.com/mbra/nzbmonkey/internal/indexer"
	"github.com/mbra/nzbmonkey/internal/logging"
	"github.com/mbra/nzbmonkey/internal/services"
)

// RunFunc performs one crawl pass.
type RunFunc func(ctx context.Context) (*indexer.Result, error)

// LastRun summarises the most recent scheduled run.
type LastRun struct {
	RunID     string
	Started   time.Time
	Duration  time.Duration
	Releases  int
	Failed    int
	Err       error
	Succeeded bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Busy         bool
	Schedule     string
	Next         time.Time
	LastRun      *LastRun
	LockFilePath string
}

// Daemon schedules runs and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	run    RunFunc

	lockPath string
	lock     *flock.Flock

	cron    *cron.Cron
	entryID cron.EntryID

	running atomic.Bool
	busy    atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	mu   sync.Mutex
	last *LastRun
}

// New constructs a daemon. run is usually a closure over indexer.Run.
func New(cfg *config.Config, logger *slog.Logger, run RunFunc) (*Daemon, error) {
	if cfg == nil || run == nil {
		return nil, errors.New("daemon requires config and run function")
	}
	lockPath := filepath.Join(cfg.Paths.StateDir, "nzbmonkeyd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		run:      run,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and starts the scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another nzbmonkeyd instance is already running")
	}

	c := cron.New(cron.WithLocation(d.cfg.Schedule.Location()))
	d.ctx, d.cancel = context.WithCancel(ctx)
	entryID, err := c.AddFunc(d.cfg.Schedule.Cron, func() { d.RunOnce(d.ctx) })
	if err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("schedule %q: %w", d.cfg.Schedule.Cron, err)
	}
	d.cron = c
	d.entryID = entryID
	c.Start()

	d.running.Store(true)
	d.logger.Info("nzbmonkey daemon started",
		logging.String("lock", d.lockPath),
		logging.String("schedule", d.cfg.Schedule.Cron),
		logging.String("next_run", c.Entry(entryID).Next.Format(time.RFC3339)),
	)
	return nil
}

// Stop cancels any in-flight run, waits for it and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("nzbmonkey daemon stopped")
}

// RunOnce executes a run unless one is already in progress.
func (d *Daemon) RunOnce(ctx context.Context) {
	if ctx == nil {
		return
	}
	if !d.busy.CompareAndSwap(false, true) {
		d.logger.Info("previous run still in progress; skipping tick")
		return
	}
	defer d.busy.Store(false)

	started := time.Now()
	res, err := d.run(ctx)
	last := &LastRun{Started: started, Duration: time.Since(started), Err: err}
	if res != nil {
		last.RunID = res.RunID
		last.Releases = len(res.Documents)
		if res.Report != nil {
			last.Failed = len(res.Report.Failed())
		}
		if err == nil {
			last.Err = res.Err()
		}
	}
	last.Succeeded = last.Err == nil

	d.mu.Lock()
	d.last = last
	d.mu.Unlock()

	switch {
	case err != nil && errors.Is(err, context.Canceled):
		d.logger.Info("run cancelled")
	case err != nil && errors.Is(err, indexer.ErrBusy):
		d.logger.Info("another run holds the lock; skipping tick")
	case err != nil:
		logging.ErrorWithContext(d.logger, "scheduled run failed", "daemon_run_failed",
			logging.Error(err),
			logging.Bool("retryable", services.Retryable(err)),
			logging.String(logging.FieldErrorHint, "run 'nzbmonkey check' to verify the server and directories"),
		)
	case last.Err != nil:
		logging.WarnWithContext(d.logger, "scheduled run finished with failures", "daemon_run_partial",
			logging.Error(last.Err),
			logging.Int("groups_failed", last.Failed),
		)
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		Busy:         d.busy.Load(),
		Schedule:     d.cfg.Schedule.Cron,
		LockFilePath: d.lockPath,
	}
	if d.cron != nil && status.Running {
		status.Next = d.cron.Entry(d.entryID).Next
	}
	d.mu.Lock()
	if d.last != nil {
		last := *d.last
		status.LastRun = &last
	}
	d.mu.Unlock()
	return status
}
