package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mbra/nzbmonkey/internal/logging"
	"github.com/mbra/nzbmonkey/internal/services"
	"github.com/mbra/nzbmonkey/internal/testsupport"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, "nzbmonkey.log"))
	if !strings.Contains(content, "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerFormatsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithGroup(context.Background(), "alt.binaries.test")
	log := logging.WithContext(ctx, logging.NewComponentLogger(logger, "crawl"))
	log.Info("window fetched", logging.Int64("records", 12), logging.Int64("window_bytes", 2048))

	content := readLog(t, logPath)
	for _, fragment := range []string{"INFO [crawl] alt.binaries.test - window fetched", "records: 12", "window_bytes: 2.0 kB"} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
}

func TestConsoleLoggerShortensRunID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-run.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "indexer")).Info("run finished")

	content := readLog(t, logPath)
	if !strings.Contains(content, "INFO [indexer] (run 1b4e28ba) - run finished") {
		t.Fatalf("expected short run id in header, got %q", content)
	}
	if strings.Contains(content, "run_id:") {
		t.Fatalf("run id should not repeat as a field, got %q", content)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-7")
	logging.WithContext(ctx, logger).Info("started")

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry[logging.FieldRunID] != "run-7" || entry["level"] != "info" || entry["msg"] != "started" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "group failed", "crawl_group_failed")

	content := readLog(t, logPath)
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if !strings.Contains(content, `"`+key+`"`) {
			t.Fatalf("expected %s in %q", key, content)
		}
	}
}

func TestWarnWithContextKeepsCallerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "document not written", "document_write_failed",
		logging.Release("Foo.Bar"),
		logging.String(logging.FieldImpact, "release missing from output"),
	)

	content := readLog(t, logPath)
	for _, want := range []string{`"release":"Foo.Bar"`, `"impact":"release missing from output"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in %q", want, content)
		}
	}
	if strings.Count(content, `"impact"`) != 1 {
		t.Fatalf("impact must not be duplicated: %q", content)
	}
}
