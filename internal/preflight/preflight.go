package preflight

import (
	"context"
	"strings"

	"github.com/mbra/nzbmonkey/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// RunAll executes all applicable preflight checks for the given config.
// Server checks are skipped when no host is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Output directory", cfg.Output.Dir),
	}

	if strings.TrimSpace(cfg.Server.Host) == "" {
		return results
	}
	return append(results, CheckServer(ctx, cfg.Server, cfg.Crawl.Groups)...)
}
