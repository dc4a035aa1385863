package main

import (
	"context"
	"strings"
	"testing"

	"github.com/mbra/nzbmonkey/internal/preflight"
	"github.com/mbra/nzbmonkey/internal/testsupport"
)

func TestRunFuncCrawlsConfiguredGroups(t *testing.T) {
	srv := testsupport.NewNNTPServer(t, "200 ready", map[string][]string{
		"GROUP alt.binaries.test": {"211 0 5 4 alt.binaries.test"},
		"QUIT":                    {"205 bye"},
	})
	host, port := srv.HostPort()
	cfg := testsupport.NewConfig(t, testsupport.WithServer(host, port))

	res, err := newRunFunc(cfg, nil)(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Report == nil || len(res.Report.Groups) != 1 {
		t.Fatalf("expected one group report, got %+v", res.Report)
	}
	if !res.Report.Groups[0].Skipped {
		t.Fatalf("empty group should be skipped, got %+v", res.Report.Groups[0])
	}
}

func TestLogStartupChecksReportsUnreachableServer(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithServer("127.0.0.1", 1))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	results := logStartupChecks(context.Background(), cfg, nil)
	failed := preflight.Failed(results)
	if len(failed) != 1 || !strings.HasPrefix(failed[0].Name, "News server") {
		t.Fatalf("expected only the server check to fail, got %+v", failed)
	}
}
