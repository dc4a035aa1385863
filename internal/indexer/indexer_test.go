package indexer_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/mbra/nzbmonkey/internal/article"
	"github.com/mbra/nzbmonkey/internal/config"
	"github.com/mbra/nzbmonkey/internal/crawl"
	"github.com/mbra/nzbmonkey/internal/indexer"
	"github.com/mbra/nzbmonkey/internal/nzb"
	"github.com/mbra/nzbmonkey/internal/services"
	"github.com/mbra/nzbmonkey/internal/state"
	"github.com/mbra/nzbmonkey/internal/testsupport"
)

var fixedNow = func() time.Time { return time.Unix(1700000000, 0) }

func fooBar(group string) []article.Record {
	return testsupport.Articles(group, 1, 4, func(id int64) string {
		if id == 4 {
			return `Bar - [1/2] - "bar.part1.rar" yEnc (1/1)`
		}
		return fmt.Sprintf(`Foo - [1/1] - "foo.rar" yEnc (%d/3)`, id)
	})
}

func fooBarSource(group string) *testsupport.FakeSource {
	src := testsupport.NewFakeSource()
	src.AddGroup(group, testsupport.FakeGroup{
		Info:    crawl.GroupInfo{Count: 4, Low: 1, High: 4},
		Records: fooBar(group),
	})
	return src
}

func storedCursor(t *testing.T, cfg *config.Config, group string) int64 {
	t.Helper()
	store, err := state.Open(cfg)
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	defer store.Close()
	v, err := store.Get(context.Background(), group, crawl.FieldLastArticle, -1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return v
}

func resultsByRelease(res *indexer.Result) map[string]indexer.Document {
	out := make(map[string]indexer.Document)
	for _, d := range res.Documents {
		out[d.Release.Name] = d
	}
	return out
}

func TestRunWritesDocumentsAndPersistsCursor(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetricsTextfile())
	src := fooBarSource("alt.binaries.test")

	res, err := indexer.Run(context.Background(), cfg, nil, indexer.Options{Source: src, Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Err() != nil {
		t.Fatalf("unexpected partial failure: %v", res.Err())
	}
	if res.RunID == "" {
		t.Fatal("expected a run id")
	}

	docs := resultsByRelease(res)
	if len(docs) != 2 {
		t.Fatalf("expected 2 releases, got %d", len(docs))
	}
	foo := docs["foo"]
	if foo.Result != indexer.ResultWritten || foo.Status != nzb.StatusComplete {
		t.Fatalf("foo: %+v", foo)
	}
	if foo.Path != filepath.Join(cfg.Output.Dir, "foo.nzb") {
		t.Fatalf("foo path: %s", foo.Path)
	}
	body := testsupport.ReadFile(t, foo.Path)
	if !strings.Contains(body, "<group>alt.binaries.test</group>") || strings.Count(body, "<segment ") != 3 {
		t.Fatalf("unexpected document:\n%s", body)
	}
	bar := docs["bar"]
	if bar.Result != indexer.ResultWritten || bar.Status != nzb.StatusIncomplete {
		t.Fatalf("incomplete releases are written by default: %+v", bar)
	}

	if v := storedCursor(t, cfg, "alt.binaries.test"); v != 4 {
		t.Fatalf("cursor: want 4, got %d", v)
	}

	prom := testsupport.ReadFile(t, cfg.Metrics.Textfile)
	if !strings.Contains(prom, `nzbmonkey_documents_total{result="written",status="complete"} 1`) {
		t.Fatalf("metrics missing document counter:\n%s", prom)
	}
	if !strings.Contains(prom, "nzbmonkey_last_run_success 1") {
		t.Fatalf("metrics missing success gauge:\n%s", prom)
	}
}

func TestRunSkipsIncompleteWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSkipIncomplete())
	records := append(fooBar("alt.binaries.test"), testsupport.Articles("alt.binaries.test", 5, 5, func(int64) string {
		return `"notes.nfo" yEnc (1/1)`
	})...)
	src := testsupport.NewFakeSource()
	src.AddGroup("alt.binaries.test", testsupport.FakeGroup{
		Info:    crawl.GroupInfo{Count: 5, Low: 1, High: 5},
		Records: records,
	})

	res, err := indexer.Run(context.Background(), cfg, nil, indexer.Options{Source: src, Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	docs := resultsByRelease(res)
	if foo := docs["foo"]; foo.Result != indexer.ResultWritten {
		t.Fatalf("complete releases are still written: %+v", foo)
	}
	tests := []struct {
		name   string
		status nzb.Status
	}{
		{name: "bar", status: nzb.StatusIncomplete},
		{name: "notes", status: nzb.StatusUnknown},
	}
	for _, tt := range tests {
		d := docs[tt.name]
		if d.Status != tt.status || d.Result != indexer.ResultSkipped {
			t.Fatalf("%s should be skipped as %s: %+v", tt.name, tt.status, d)
		}
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, tt.name+".nzb")); !os.IsNotExist(err) {
			t.Fatalf("%s.nzb must not exist: %v", tt.name, err)
		}
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	res, err := indexer.Run(context.Background(), cfg, nil, indexer.Options{Source: fooBarSource("alt.binaries.test"), DryRun: true, Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, d := range res.Documents {
		if d.Result != indexer.ResultDryRun {
			t.Fatalf("expected dry-run result, got %+v", d)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, "foo.nzb")); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote a document: %v", err)
	}
	if v := storedCursor(t, cfg, "alt.binaries.test"); v != -1 {
		t.Fatalf("dry run persisted cursor %d", v)
	}
}

func TestRunRepeatedWithoutPersistIsUnchanged(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	opts := indexer.Options{Source: fooBarSource("alt.binaries.test"), NoPersist: true, Now: fixedNow}
	if _, err := indexer.Run(context.Background(), cfg, nil, opts); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	res, err := indexer.Run(context.Background(), cfg, nil, opts)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	for _, d := range res.Documents {
		if d.Result != indexer.ResultUnchanged {
			t.Fatalf("%s: expected unchanged, got %s", d.Release.Name, d.Result)
		}
	}
}

func TestRunReportsFailedGroupAndKeepsOthers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithGroups("alt.a", "alt.b"))
	src := fooBarSource("alt.a")
	src.AddGroup("alt.b", testsupport.FakeGroup{GroupErr: errors.New("480 authentication required")})

	res, err := indexer.Run(context.Background(), cfg, nil, indexer.Options{Source: src, Now: fixedNow})
	if err != nil {
		t.Fatalf("per-group failures must not fail the run: %v", err)
	}
	if !errors.Is(res.Err(), services.ErrProtocol) {
		t.Fatalf("expected protocol failure in result, got %v", res.Err())
	}
	failed := res.Report.Failed()
	if len(failed) != 1 || failed[0].Group != "alt.b" {
		t.Fatalf("unexpected failed groups: %+v", failed)
	}
	if d := resultsByRelease(res)["foo"]; d.Result != indexer.ResultWritten {
		t.Fatalf("alt.a documents should still be written: %+v", d)
	}
	if v := storedCursor(t, cfg, "alt.a"); v != 4 {
		t.Fatalf("alt.a cursor: want 4, got %d", v)
	}
	if v := storedCursor(t, cfg, "alt.b"); v != -1 {
		t.Fatalf("alt.b cursor must be untouched, got %d", v)
	}
}

func TestRunFailsWhenLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(cfg.LockPath())
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("pre-lock: %v %v", ok, err)
	}
	defer held.Unlock()

	_, err := indexer.Run(context.Background(), cfg, nil, indexer.Options{Source: fooBarSource("alt.binaries.test")})
	if !errors.Is(err, indexer.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Output.Encoding = "ebcdic"
	_, err := indexer.Run(context.Background(), cfg, nil, indexer.Options{Source: testsupport.NewFakeSource()})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if services.ExitCode(err) != 2 {
		t.Fatalf("expected exit code 2, got %d", services.ExitCode(err))
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := indexer.Run(ctx, cfg, nil, indexer.Options{Source: fooBarSource("alt.binaries.test")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	// lock and store must be released
	if _, err := indexer.Run(context.Background(), cfg, nil, indexer.Options{Source: fooBarSource("alt.binaries.test"), Now: fixedNow}); err != nil {
		t.Fatalf("run after cancel: %v", err)
	}
}

func TestRunAgainstNewsServer(t *testing.T) {
	rows := make([]string, 0, 4)
	for _, rec := range fooBar("alt.binaries.test") {
		rows = append(rows, article.FormatLine(rec))
	}
	srv := testsupport.NewNNTPServer(t, "200 ready", map[string][]string{
		"GROUP alt.binaries.test": {"211 4 1 4 alt.binaries.test"},
		"XOVER 1-4":               testsupport.OverviewReply(rows...),
		"QUIT":                    {"205 bye"},
	})
	host, port := srv.HostPort()
	cfg := testsupport.NewConfig(t, testsupport.WithServer(host, port))

	res, err := indexer.Run(context.Background(), cfg, nil, indexer.Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stats.Considered != 4 {
		t.Fatalf("expected 4 considered records, got %+v", res.Stats)
	}
	cmds := srv.Commands()
	if len(cmds) == 0 || cmds[len(cmds)-1] != "QUIT" {
		t.Fatalf("session must end with QUIT, got %v", cmds)
	}
}

func TestRunReconnectsAfterDroppedSession(t *testing.T) {
	overview := func(recs []article.Record) []string {
		rows := make([]string, 0, len(recs))
		for _, rec := range recs {
			rows = append(rows, article.FormatLine(rec))
		}
		return rows
	}
	fooRows := overview(testsupport.Articles("alt.a", 1, 3, func(id int64) string {
		return fmt.Sprintf(`Foo - [1/1] - "foo.rar" yEnc (%d/3)`, id)
	}))
	lostRows := overview(testsupport.Articles("alt.b", 5, 6, func(id int64) string {
		return fmt.Sprintf(`Lost - [1/1] - "lost.rar" yEnc (%d/2)`, id)
	}))
	bazRows := overview(testsupport.Articles("alt.c", 1, 2, func(id int64) string {
		return fmt.Sprintf(`Baz - [1/1] - "baz.rar" yEnc (%d/2)`, id)
	}))

	srv := testsupport.NewNNTPServer(t, "200 ready", map[string][]string{
		"GROUP alt.a": {"211 3 1 3 alt.a"},
		"XOVER 1-3":   testsupport.OverviewReply(fooRows...),
		"GROUP alt.b": {"211 2 5 6 alt.b"},
		"XOVER 5-6":   {"224 overview follows", lostRows[0], testsupport.Hangup},
		"GROUP alt.c": {"211 2 1 2 alt.c"},
		"XOVER 1-2":   testsupport.OverviewReply(bazRows...),
		"QUIT":        {"205 bye"},
	})
	host, port := srv.HostPort()
	cfg := testsupport.NewConfig(t, testsupport.WithServer(host, port), testsupport.WithGroups("alt.a", "alt.b", "alt.c"))

	res, err := indexer.Run(context.Background(), cfg, nil, indexer.Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	failed := res.Report.Failed()
	if len(failed) != 1 || failed[0].Group != "alt.b" {
		t.Fatalf("only alt.b should fail, got %+v", failed)
	}
	if got := srv.Connections(); got != 2 {
		t.Fatalf("expected one reconnect, got %d sessions", got)
	}

	docs := resultsByRelease(res)
	for _, name := range []string{"foo", "baz"} {
		if d := docs[name]; d.Result != indexer.ResultWritten {
			t.Fatalf("%s should be written: %+v", name, d)
		}
	}
	if v := storedCursor(t, cfg, "alt.c"); v != 2 {
		t.Fatalf("alt.c cursor: want 2, got %d", v)
	}
	if v := storedCursor(t, cfg, "alt.b"); v != -1 {
		t.Fatalf("alt.b cursor must be untouched, got %d", v)
	}
	cmds := srv.Commands()
	if cmds[len(cmds)-1] != "QUIT" {
		t.Fatalf("replacement session must end with QUIT, got %v", cmds)
	}
}

func TestIndexFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dump := testsupport.WriteOverview(t, filepath.Join(testsupport.BaseDir(cfg), "dump.txt"), fooBar(""))

	res, err := indexer.IndexFile(context.Background(), cfg, nil, indexer.FileOptions{Path: dump, Group: "alt.dump", Now: fixedNow})
	if err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	if res.Index.Len() != 2 {
		t.Fatalf("expected 2 releases, got %d", res.Index.Len())
	}
	body := testsupport.ReadFile(t, filepath.Join(cfg.Output.Dir, "foo.nzb"))
	if !strings.Contains(body, "<group>alt.dump</group>") {
		t.Fatalf("dump group not applied:\n%s", body)
	}
}

func TestIndexFileRequiresGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := indexer.IndexFile(context.Background(), cfg, nil, indexer.FileOptions{Path: "-"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
