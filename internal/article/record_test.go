package article_test

import (
	"errors"
	"testing"

	"github.com/mbra/nzbmonkey/internal/article"
)

func TestParseLine(t *testing.T) {
	line := "1001\tFoo - [1/2] - \"file.part1.rar\" yEnc (1/3)\tposter@example.com (Poster)\t3 Mar 2024 10:11:12 GMT\t<abc@news>\t\t768000\t5900\tXref: news a.b.c:1001"

	rec, err := article.ParseLine("alt.binaries.test", line)
	if err != nil {
		t.Fatalf("ParseLine returned error: %v", err)
	}
	if rec.ID != 1001 {
		t.Fatalf("unexpected id: %d", rec.ID)
	}
	if rec.MessageID != "<abc@news>" {
		t.Fatalf("unexpected message id: %q", rec.MessageID)
	}
	if rec.Bytes != 768000 || rec.Lines != 5900 {
		t.Fatalf("unexpected counts: bytes=%d lines=%d", rec.Bytes, rec.Lines)
	}
	if rec.Group != "alt.binaries.test" {
		t.Fatalf("unexpected group: %q", rec.Group)
	}
}

func TestParseLineRejectsShortRows(t *testing.T) {
	cases := []string{
		"",
		"1001\tsubject only",
		"abc\ts\tp\td\t<m>\t\t1\t1",
	}
	for _, line := range cases {
		if _, err := article.ParseLine("g", line); !errors.Is(err, article.ErrMalformedLine) {
			t.Fatalf("line %q: expected ErrMalformedLine, got %v", line, err)
		}
	}
}

func TestParseLineToleratesEmptyCounts(t *testing.T) {
	rec, err := article.ParseLine("g", "7\ts\tp\td\t<m@x>\t\t\t")
	if err != nil {
		t.Fatalf("ParseLine returned error: %v", err)
	}
	if rec.Bytes != 0 || rec.Lines != 0 {
		t.Fatalf("expected zero counts, got %d/%d", rec.Bytes, rec.Lines)
	}
}

func TestFormatLineRoundTrip(t *testing.T) {
	want := article.Record{ID: 5, Subject: "s", Poster: "p", Date: "d", MessageID: "<m@x>", Bytes: 10, Lines: 2, Group: "g"}
	got, err := article.ParseLine("g", article.FormatLine(want))
	if err != nil {
		t.Fatalf("ParseLine returned error: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %#v want %#v", got, want)
	}
}
