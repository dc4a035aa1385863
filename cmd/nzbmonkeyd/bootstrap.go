package main

import (
	"context"
	"log/slog"

	"github.com/mbra/nzbmonkey/internal/config"
	"github.com/mbra/nzbmonkey/internal/daemon"
	"github.com/mbra/nzbmonkey/internal/indexer"
	"github.com/mbra/nzbmonkey/internal/logging"
	"github.com/mbra/nzbmonkey/internal/preflight"
)

func newRunFunc(cfg *config.Config, logger *slog.Logger) daemon.RunFunc {
	return func(ctx context.Context) (*indexer.Result, error) {
		return indexer.Run(ctx, cfg, logger, indexer.Options{})
	}
}

// logStartupChecks reports preflight failures without refusing to start; a
// server outage at boot may be over by the first tick.
func logStartupChecks(ctx context.Context, cfg *config.Config, logger *slog.Logger) []preflight.Result {
	log := logging.NewComponentLogger(logger, "preflight")
	results := preflight.RunAll(ctx, cfg)
	for _, r := range preflight.Failed(results) {
		logging.WarnWithContext(log, "startup check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldImpact, "scheduled runs may fail until this is fixed"),
		)
	}
	return results
}
