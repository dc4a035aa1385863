package subject_test

import (
	"errors"
	"testing"

	"github.com/mbra/nzbmonkey/internal/services"
	"github.com/mbra/nzbmonkey/internal/subject"
)

func TestParseFullSubject(t *testing.T) {
	p := subject.Default()

	fields, ok := p.Parse(`Foo - [1/2] - "file.part1.rar" yEnc (1/3)`)
	if !ok {
		t.Fatal("expected subject to match")
	}
	want := subject.Fields{
		Title:         "Foo",
		PartNumber:    1,
		PartCount:     2,
		Name:          "file",
		Qualifier:     "part1",
		Type:          "rar",
		SegmentNumber: 1,
		SegmentCount:  3,
	}
	if fields != want {
		t.Fatalf("unexpected fields:\n got %#v\nwant %#v", fields, want)
	}
	if fields.Filename() != "file.part1.rar" {
		t.Fatalf("unexpected filename %q", fields.Filename())
	}
}

func TestParseOptionalMarkers(t *testing.T) {
	p := subject.Default()

	cases := []struct {
		name    string
		subject string
		want    subject.Fields
	}{
		{
			name:    "no part marker",
			subject: `Foo - "movie.avi" yEnc (2/9)`,
			want:    subject.Fields{Title: "Foo", Name: "movie", Type: "avi", SegmentNumber: 2, SegmentCount: 9},
		},
		{
			name:    "no title",
			subject: `"movie.sample.avi" (1/1)`,
			want:    subject.Fields{Name: "movie", Qualifier: "sample", Type: "avi", SegmentNumber: 1, SegmentCount: 1},
		},
		{
			name:    "parenthesised part marker without yEnc",
			subject: `Some Title (03/12) "archive.r01" (4/50)`,
			want:    subject.Fields{Title: "Some Title", PartNumber: 3, PartCount: 12, Name: "archive", Type: "r01", SegmentNumber: 4, SegmentCount: 50},
		},
		{
			name:    "par2 volume",
			subject: `Show [5/7] - "show.vol03+04.par2" yEnc (1/2)`,
			want:    subject.Fields{Title: "Show", PartNumber: 5, PartCount: 7, Name: "show", Qualifier: "vol03+04", Type: "par2", SegmentNumber: 1, SegmentCount: 2},
		},
		{
			name:    "case insensitive",
			subject: `foo [1/1] - "README.NFO" YENC (1/1)`,
			want:    subject.Fields{Title: "foo", PartNumber: 1, PartCount: 1, Name: "README", Type: "NFO", SegmentNumber: 1, SegmentCount: 1},
		},
		{
			name:    "title with year in parens",
			subject: `Film (2020) [01/10] - "film.part01.rar" yEnc (7/40)`,
			want:    subject.Fields{Title: "Film (2020)", PartNumber: 1, PartCount: 10, Name: "film", Qualifier: "part01", Type: "rar", SegmentNumber: 7, SegmentCount: 40},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := p.Parse(tc.subject)
			if !ok {
				t.Fatalf("expected %q to match", tc.subject)
			}
			if got != tc.want {
				t.Fatalf("unexpected fields:\n got %#v\nwant %#v", got, tc.want)
			}
		})
	}
}

func TestParseMisses(t *testing.T) {
	p := subject.Default()
	for _, s := range []string{
		"",
		"Re: looking for a release",
		`Foo - [1/2] - "file.part1.rar" yEnc`,
		`Foo - [1/2] - file.part1.rar yEnc (1/3)`,
		`Foo - "file.exe" yEnc (1/3)`,
	} {
		if _, ok := p.Parse(s); ok {
			t.Fatalf("expected %q not to match", s)
		}
	}
}

func TestNewParserRejectsBadPatterns(t *testing.T) {
	for _, pattern := range []string{
		`(?P<name>[`,
		`"(?P<name>[^"]+)"`,
	} {
		_, err := subject.NewParser(pattern)
		if !errors.Is(err, subject.ErrInvalidPattern) {
			t.Fatalf("pattern %q: expected ErrInvalidPattern, got %v", pattern, err)
		}
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("pattern %q: expected configuration error marker, got %v", pattern, err)
		}
	}
}

func TestNewParserCustomPattern(t *testing.T) {
	p, err := subject.NewParser(`^(?P<title>\S+) (?P<name>\w+)\.(?P<type>bin) \((?P<segment_number>\d+)/(?P<segment_count>\d+)\)$`)
	if err != nil {
		t.Fatalf("NewParser returned error: %v", err)
	}
	got, ok := p.Parse("rel data.bin (2/4)")
	if !ok {
		t.Fatal("expected custom pattern to match")
	}
	if got.Title != "rel" || got.Filename() != "data.bin" || got.SegmentNumber != 2 || got.SegmentCount != 4 {
		t.Fatalf("unexpected fields: %#v", got)
	}
	if got.PartCount != 0 {
		t.Fatalf("expected unknown part count, got %d", got.PartCount)
	}
}

func TestEmptyPatternSelectsDefault(t *testing.T) {
	p, err := subject.NewParser("  ")
	if err != nil {
		t.Fatalf("NewParser returned error: %v", err)
	}
	if p.Pattern() != subject.DefaultPattern {
		t.Fatalf("expected default pattern, got %q", p.Pattern())
	}
}
