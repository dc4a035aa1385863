package subject

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mbra/nzbmonkey/internal/services"
)

// DefaultPattern matches yEnc-style multi-part subjects.
const DefaultPattern = `(?i)^(?P<title>.*?)\s*-?\s*` +
	`(?:[\[(](?P<part_number>\d+)/(?P<part_count>\d+)[\])])?` +
	`\s*-?\s*(?:yEnc\s+)?` +
	`"(?P<name>[^"]+?)\.?(?P<opt>sample|part\d+|vol\d+\+\d+|vol\d+)?\.(?P<type>nfo|avi|rar|nzb|par2|r\d+)"` +
	`\s*(?:yEnc\s*)?` +
	`\((?P<segment_number>\d+)/(?P<segment_count>\d+)\)`

// Named groups a pattern must define; the rest are optional.
var requiredGroups = []string{"name", "type", "segment_number", "segment_count"}

// ErrInvalidPattern is returned when a subject pattern cannot be used.
var ErrInvalidPattern = fmt.Errorf("%w: invalid subject pattern", services.ErrConfiguration)

// Fields holds the markers parsed out of one subject. Numeric fields are zero
// when the subject does not carry the marker.
type Fields struct {
	Title         string
	PartNumber    int
	PartCount     int
	Name          string
	Qualifier     string
	Type          string
	SegmentNumber int
	SegmentCount  int
}

// Filename rebuilds the file name from base name, qualifier, and type.
func (f Fields) Filename() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{f.Name, f.Qualifier, f.Type} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// Parser matches subjects against a compiled pattern. It is safe for
// concurrent use.
type Parser struct {
	re    *regexp.Regexp
	index map[string]int
}

// NewParser compiles pattern; an empty pattern selects DefaultPattern.
func NewParser(pattern string) (*Parser, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	index := make(map[string]int, re.NumSubexp())
	for i, name := range re.SubexpNames() {
		if name != "" {
			index[name] = i
		}
	}
	for _, name := range requiredGroups {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: missing named group %q", ErrInvalidPattern, name)
		}
	}
	return &Parser{re: re, index: index}, nil
}

// MustParser is NewParser for patterns known to be valid.
func MustParser(pattern string) *Parser {
	p, err := NewParser(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Default returns a parser for DefaultPattern.
func Default() *Parser {
	return MustParser(DefaultPattern)
}

// Pattern returns the source of the compiled expression.
func (p *Parser) Pattern() string {
	return p.re.String()
}

// Parse extracts Fields from subject. ok is false when the subject does not match.
func (p *Parser) Parse(subject string) (Fields, bool) {
	m := p.re.FindStringSubmatch(subject)
	if m == nil {
		return Fields{}, false
	}
	return Fields{
		Title:         strings.TrimSpace(p.group(m, "title")),
		PartNumber:    atoi(p.group(m, "part_number")),
		PartCount:     atoi(p.group(m, "part_count")),
		Name:          p.group(m, "name"),
		Qualifier:     p.group(m, "opt"),
		Type:          p.group(m, "type"),
		SegmentNumber: atoi(p.group(m, "segment_number")),
		SegmentCount:  atoi(p.group(m, "segment_count")),
	}, true
}

func (p *Parser) group(m []string, name string) string {
	i, ok := p.index[name]
	if !ok || i >= len(m) {
		return ""
	}
	return m[i]
}

func atoi(value string) int {
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
