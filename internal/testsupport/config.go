package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/mbra/nzbmonkey/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Server.Host = "127.0.0.1"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Output.Dir = filepath.Join(base, "nzb")
	cfgVal.Crawl.Groups = []string{"alt.binaries.test"}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithGroups replaces the monitored groups.
func WithGroups(groups ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Crawl.Groups = groups
	}
}

// WithServer points the config at addr ("host:port").
func WithServer(host string, port int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.Host = host
		b.cfg.Server.Port = port
		b.cfg.Server.TimeoutSeconds = 5
	}
}

// WithMetricsTextfile enables metrics export inside the temp directory.
func WithMetricsTextfile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Textfile = filepath.Join(b.baseDir, "metrics", "nzbmonkey.prom")
	}
}

// WithSkipIncomplete switches the output policy to skip incomplete releases.
func WithSkipIncomplete() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Incomplete = "skip"
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
