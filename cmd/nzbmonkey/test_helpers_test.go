package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mbra/nzbmonkey/internal/config"
	"github.com/mbra/nzbmonkey/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("NZBMONKEY_NNTP_USER", "")
	t.Setenv("NZBMONKEY_NNTP_PASSWORD", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	groups := make([]string, 0, len(cfg.Crawl.Groups))
	for _, g := range cfg.Crawl.Groups {
		groups = append(groups, fmt.Sprintf("%q", g))
	}
	content := fmt.Sprintf(`[server]
host = %q
port = %d
timeout_seconds = %d

[crawl]
groups = [%s]

[output]
dir = %q
incomplete = %q

[paths]
state_dir = %q
log_dir = %q

[metrics]
textfile = %q
`,
		cfg.Server.Host,
		cfg.Server.Port,
		cfg.Server.TimeoutSeconds,
		strings.Join(groups, ", "),
		cfg.Output.Dir,
		cfg.Output.Incomplete,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Metrics.Textfile,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
