package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mbra/nzbmonkey/internal/article"
)

// WriteOverview writes records as an overview dump, one tab-separated row
// per line, and returns the path.
func WriteOverview(t testing.TB, path string, records []article.Record) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(article.FormatLine(rec))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadFile returns the contents of path or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
