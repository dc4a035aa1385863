package article

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Record is one article's overview metadata.
type Record struct {
	ID         int64
	Subject    string
	Poster     string
	Date       string
	MessageID  string
	References string
	Bytes      int64
	Lines      int64
	Group      string
}

// ErrMalformedLine reports an overview line with too few fields or a bad number.
var ErrMalformedLine = errors.New("malformed overview line")

// overview fields in RFC 2980 order; anything after Lines (Xref etc.) is ignored
const overviewFields = 8

// ParseLine decodes one tab-separated overview line and tags it with group.
func ParseLine(group, line string) (Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) < overviewFields {
		return Record{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedLine, overviewFields, len(fields))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: article number %q", ErrMalformedLine, fields[0])
	}

	return Record{
		ID:         id,
		Subject:    fields[1],
		Poster:     fields[2],
		Date:       fields[3],
		MessageID:  strings.TrimSpace(fields[4]),
		References: fields[5],
		Bytes:      parseCount(fields[6]),
		Lines:      parseCount(fields[7]),
		Group:      group,
	}, nil
}

// FormatLine is the inverse of ParseLine; the group tag is not part of the line.
func FormatLine(r Record) string {
	return strings.Join([]string{
		strconv.FormatInt(r.ID, 10),
		r.Subject,
		r.Poster,
		r.Date,
		r.MessageID,
		r.References,
		strconv.FormatInt(r.Bytes, 10),
		strconv.FormatInt(r.Lines, 10),
	}, "\t")
}

// some servers leave byte/line counts empty; treat them as zero rather than failing the row
func parseCount(value string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
