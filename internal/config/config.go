package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server describes the news server connection.
type Server struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	TLS            bool   `toml:"tls"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Crawl controls which groups are scanned and how far back.
type Crawl struct {
	Groups            []string `toml:"groups"`
	DefaultDelta      int64    `toml:"default_delta"`
	MaxWindow         int64    `toml:"max_window"`
	Persist           bool     `toml:"persist"`
	Concurrency       int      `toml:"concurrency"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// Matching selects how subjects are parsed and compared.
type Matching struct {
	Mode           string `toml:"mode"`
	SubjectPattern string `toml:"subject_pattern"`
}

// Output controls where and how NZB documents are written.
type Output struct {
	Dir           string `toml:"dir"`
	Encoding      string `toml:"encoding"`
	SegmentOrder  string `toml:"segment_order"`
	Incomplete    string `toml:"incomplete"`
	FallbackGroup string `toml:"fallback_group"`
}

// Paths contains state and log directories.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Schedule drives nzbmonkeyd.
type Schedule struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

// Metrics configures the node-exporter textfile output. Empty disables it.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for nzbmonkey.
//
// Configuration sections by subsystem:
//   - Server: news server address and credentials
//   - Crawl: monitored groups and window sizing
//   - Matching: subject pattern and comparison mode
//   - Output: document directory, encoding, and incomplete policy
//   - Paths: cursor database and log locations
//   - Schedule: cron expression for the daemon
//   - Metrics: prometheus textfile export
//   - Logging: log format and level
type Config struct {
	Server   Server   `toml:"server"`
	Crawl    Crawl    `toml:"crawl"`
	Matching Matching `toml:"matching"`
	Output   Output   `toml:"output"`
	Paths    Paths    `toml:"paths"`
	Schedule Schedule `toml:"schedule"`
	Metrics  Metrics  `toml:"metrics"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/nzbmonkey/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, configErrorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("nzbmonkey.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, log, and output directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Output.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StatePath is the cursor database location.
func (c *Config) StatePath() string {
	return filepath.Join(c.Paths.StateDir, "state.db")
}

// LockPath is the run lock shared by the CLI and the daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "nzbmonkey.lock")
}

// Address joins host and port for dialing. Port 0 selects 119, or 563 with TLS.
func (s Server) Address() string {
	port := s.Port
	if port == 0 {
		port = defaultPort
		if s.TLS {
			port = defaultTLSPort
		}
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}

// Timeout converts TimeoutSeconds to a duration.
func (s Server) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RequireServer reports a configuration error when no server host is set.
// Offline commands do not need one, so Validate does not check it.
func (c *Config) RequireServer() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		path, err := DefaultConfigPath()
		if err != nil {
			path = "~/.config/nzbmonkey/config.toml"
		}
		return configErrorf("server.host is required. Edit %s (create with 'nzbmonkey config init')", path)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
