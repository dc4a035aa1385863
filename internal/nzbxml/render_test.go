package nzbxml_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mbra/nzbmonkey/internal/article"
	"github.com/mbra/nzbmonkey/internal/nzb"
	"github.com/mbra/nzbmonkey/internal/nzbxml"
	"github.com/mbra/nzbmonkey/internal/services"
)

var fixedNow = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func newRenderer(t *testing.T, opts nzbxml.Options) *nzbxml.Renderer {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	r, err := nzbxml.NewRenderer(opts)
	if err != nil {
		t.Fatalf("NewRenderer returned error: %v", err)
	}
	return r
}

func release(t *testing.T, group, date string, subjects ...string) *nzb.Release {
	t.Helper()
	b := nzb.NewBuilder(nil, nil)
	for i, s := range subjects {
		b.Add(article.Record{
			ID:        int64(i + 1),
			Subject:   s,
			Poster:    "poster <p@example.com>",
			Date:      date,
			MessageID: fmt.Sprintf("<%d@example.com>", i+1),
			Bytes:     int64(100 * (i + 1)),
			Group:     group,
		})
	}
	return b.Index().Releases()[0]
}

func TestRenderReleaseDocument(t *testing.T) {
	rel := release(t, "alt.binaries.test", "Mon, 2 Jan 2006 15:04:05 -0700", `Foo - "a.nfo" yEnc (1/1)`)
	out, err := newRenderer(t, nzbxml.Options{}).Release(rel)
	if err != nil {
		t.Fatalf("Release returned error: %v", err)
	}

	want := `<?xml version="1.0" encoding="utf-8" ?>
<!DOCTYPE nzb PUBLIC "-//newzBin//DTD NZB 1.0//EN" "http://www.newzbin.com/DTD/nzb/nzb-1.0.dtd">
<nzb xmlns="http://www.newzbin.com/DTD/2003/nzb">
  <file poster="poster &lt;p@example.com&gt;" date="1136239445" subject="Foo - &#34;a.nfo&#34; yEnc (1/1)">
    <groups>
      <group>alt.binaries.test</group>
    </groups>
    <segments>
      <segment bytes="100" number="1">1@example.com</segment>
    </segments>
  </file>
</nzb>
`
	if string(out) != want {
		t.Fatalf("unexpected document:\n%s\nwant:\n%s", out, want)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	rel := release(t, "g", "not a date", `Foo [1/1] - "a.rar" (1/2)`, `Foo [1/1] - "a.rar" (2/2)`)
	calls := 0
	r := newRenderer(t, nzbxml.Options{Now: func() time.Time {
		calls++
		return fixedNow.Add(time.Duration(calls) * time.Hour)
	}})

	first, err := r.Release(rel)
	if err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	second, err := r.Release(rel)
	if err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("renders differ:\n%s\n---\n%s", first, second)
	}
	if calls != 1 {
		t.Fatalf("expected clock read once, got %d", calls)
	}
	if !strings.Contains(string(first), fmt.Sprintf(`date="%d"`, fixedNow.Add(time.Hour).Unix())) {
		t.Fatalf("expected fallback timestamp in %s", first)
	}
}

func TestRenderEscapesValues(t *testing.T) {
	rel := release(t, "g", "2 Jan 2006 15:04:05 UTC", `Tom & Jerry <x> - "a&b.nfo" (1/1)`)
	out, err := newRenderer(t, nzbxml.Options{}).Release(rel)
	if err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	doc := string(out)
	if !strings.Contains(doc, `subject="Tom &amp; Jerry &lt;x&gt; - &#34;a&amp;b.nfo&#34; (1/1)"`) {
		t.Fatalf("subject not escaped: %s", doc)
	}
	if strings.Contains(doc, "Tom & Jerry") {
		t.Fatalf("raw ampersand leaked: %s", doc)
	}
}

func TestRenderSegmentOrder(t *testing.T) {
	subjects := []string{`R - "a.rar" (2/3)`, `R - "a.rar" (1/3)`, `R - "a.rar" (3/3)`}
	rel := release(t, "g", "", subjects...)

	numbers := func(doc []byte) string {
		var seen []string
		for _, line := range strings.Split(string(doc), "\n") {
			if i := strings.Index(line, `number="`); i >= 0 {
				seen = append(seen, line[i+8:i+9])
			}
		}
		return strings.Join(seen, ",")
	}

	arrival, err := newRenderer(t, nzbxml.Options{}).Release(rel)
	if err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if got := numbers(arrival); got != "2,1,3" {
		t.Fatalf("arrival order = %s", got)
	}
	numeric, err := newRenderer(t, nzbxml.Options{SegmentOrder: nzbxml.OrderNumeric}).Release(rel)
	if err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if got := numbers(numeric); got != "1,2,3" {
		t.Fatalf("numeric order = %s", got)
	}
	if got := rel.Files()[0].Segments()[0].Number; got != 2 {
		t.Fatalf("rendering must not reorder the file, first segment is %d", got)
	}
}

func TestRenderWithoutGroups(t *testing.T) {
	rel := release(t, "", "", `R - "a.rar" (1/1)`)

	_, err := newRenderer(t, nzbxml.Options{}).Release(rel)
	if !errors.Is(err, nzbxml.ErrNoGroups) {
		t.Fatalf("expected ErrNoGroups, got %v", err)
	}

	out, err := newRenderer(t, nzbxml.Options{FallbackGroup: "alt.binaries.misc"}).Release(rel)
	if err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if !strings.Contains(string(out), "<group>alt.binaries.misc</group>") {
		t.Fatalf("expected fallback group in %s", out)
	}
}

func TestRenderLatin1(t *testing.T) {
	rel := release(t, "g", "", "Café ☃ - \"a.nfo\" (1/1)")
	out, err := newRenderer(t, nzbxml.Options{Encoding: "ISO-8859-1"}).Release(rel)
	if err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte(`<?xml version="1.0" encoding="iso-8859-1" ?>`)) {
		t.Fatalf("unexpected prologue: %s", out[:60])
	}
	if !bytes.Contains(out, []byte{'C', 'a', 'f', 0xE9}) {
		t.Fatal("expected latin-1 encoded e-acute")
	}
	if !bytes.Contains(out, []byte("&#9731;")) {
		t.Fatalf("expected character reference for snowman: %s", out)
	}
}

func TestRenderFileFragment(t *testing.T) {
	rel := release(t, "g", "", `R - "a.rar" (1/1)`)
	out, err := newRenderer(t, nzbxml.Options{}).File(rel.Files()[0])
	if err != nil {
		t.Fatalf("File returned error: %v", err)
	}
	if !strings.HasPrefix(string(out), "<file ") || !strings.HasSuffix(string(out), "</file>") {
		t.Fatalf("unexpected fragment: %s", out)
	}
}

func TestNewRendererRejectsUnknownOptions(t *testing.T) {
	for _, opts := range []nzbxml.Options{
		{Encoding: "utf-16"},
		{SegmentOrder: "random"},
	} {
		_, err := nzbxml.NewRenderer(opts)
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("options %+v: expected configuration error, got %v", opts, err)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		unix int64
	}{
		{"2 Jan 2006 15:04:05 UTC", true, 1136214245},
		{"Mon, 2 Jan 2006 15:04:05 -0700", true, 1136239445},
		{"Mon, 02 Jan 2006 15:04:05 -0700", true, 1136239445},
		{"yesterday", false, 0},
		{"", false, 0},
	}
	for _, tc := range cases {
		got, ok := nzbxml.ParseDate(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseDate(%q) ok = %v", tc.in, ok)
		}
		if ok && got.Unix() != tc.unix {
			t.Fatalf("ParseDate(%q) = %d, want %d", tc.in, got.Unix(), tc.unix)
		}
	}
}
