package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mbra/nzbmonkey/internal/crawl"
	"github.com/mbra/nzbmonkey/internal/metrics"
	"github.com/mbra/nzbmonkey/internal/nzb"
)

func TestWriteTextfile(t *testing.T) {
	rec := metrics.New()
	rec.ObserveCrawl(&crawl.Report{Groups: []crawl.GroupReport{
		{
			Group:     "alt.a",
			Info:      crawl.GroupInfo{High: 1000},
			Cursor:    980,
			Window:    crawl.Window{Start: 980, End: 1000, Size: 20},
			Records:   21,
			Persisted: true,
		},
		{
			Group: "alt.b",
			Err:   &crawl.GroupError{Group: "alt.b", Op: "overview", Err: errors.New("reset")},
		},
	}})
	rec.ObserveStats(nzb.Stats{Seen: 21, Discarded: 1, Considered: 20, ReleasesCreated: 1, FilesCreated: 2, SegmentsAppended: 20})
	rec.ObserveDocument(nzb.StatusComplete, "written")
	rec.ObserveRun(time.Unix(1700000000, 0), 1500*time.Millisecond, false)

	path := filepath.Join(t.TempDir(), "textfile", "nzbmonkey.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		`nzbmonkey_group_records_total{group="alt.a"} 21`,
		`nzbmonkey_group_cursor{group="alt.a"} 1000`,
		`nzbmonkey_group_window_articles{group="alt.a"} 20`,
		`nzbmonkey_group_failures_total{group="alt.b",op="overview"} 1`,
		`nzbmonkey_articles_total{outcome="discarded"} 1`,
		`nzbmonkey_entities_created_total{kind="segment"} 20`,
		`nzbmonkey_documents_total{result="written",status="complete"} 1`,
		`nzbmonkey_run_duration_seconds 1.5`,
		`nzbmonkey_last_run_timestamp_seconds 1.7e+09`,
		`nzbmonkey_last_run_success 0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("textfile missing %q:\n%s", want, out)
		}
	}
}
