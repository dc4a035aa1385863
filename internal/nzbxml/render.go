package nzbxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/mbra/nzbmonkey/internal/nzb"
	"github.com/mbra/nzbmonkey/internal/services"
)

const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"

	namespace = "http://www.newzbin.com/DTD/2003/nzb"
	doctype   = `<!DOCTYPE nzb PUBLIC "-//newzBin//DTD NZB 1.0//EN" "http://www.newzbin.com/DTD/nzb/nzb-1.0.dtd">`
)

// SegmentOrder selects how segments are listed inside a file element.
type SegmentOrder string

const (
	OrderArrival SegmentOrder = "arrival"
	OrderNumeric SegmentOrder = "numeric"
)

// ErrNoGroups is returned for a file with no known source group when no
// fallback group is configured.
var ErrNoGroups = errors.New("no source group known")

// Options controls rendering. The zero value renders UTF-8 in arrival order
// and fails on files without groups.
type Options struct {
	Encoding      string
	SegmentOrder  SegmentOrder
	FallbackGroup string
	// Now supplies the timestamp used for unparseable dates. It is called
	// once, when the Renderer is built.
	Now func() time.Time
}

// Renderer turns releases into NZB documents.
type Renderer struct {
	opts     Options
	fallback time.Time
}

// NewRenderer validates opts and captures the fallback timestamp.
func NewRenderer(opts Options) (*Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Encoding)) {
	case "", EncodingUTF8, "utf8":
		opts.Encoding = EncodingUTF8
	case EncodingLatin1, "latin1", "latin-1":
		opts.Encoding = EncodingLatin1
	default:
		return nil, fmt.Errorf("%w: unsupported document encoding %q", services.ErrConfiguration, opts.Encoding)
	}
	switch opts.SegmentOrder {
	case "":
		opts.SegmentOrder = OrderArrival
	case OrderArrival, OrderNumeric:
	default:
		return nil, fmt.Errorf("%w: unsupported segment order %q", services.ErrConfiguration, opts.SegmentOrder)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Renderer{opts: opts, fallback: now()}, nil
}

type document struct {
	XMLName xml.Name      `xml:"nzb"`
	Xmlns   string        `xml:"xmlns,attr"`
	Files   []fileElement `xml:"file"`
}

type fileElement struct {
	XMLName  xml.Name         `xml:"file"`
	Poster   string           `xml:"poster,attr"`
	Date     int64            `xml:"date,attr"`
	Subject  string           `xml:"subject,attr"`
	Groups   []string         `xml:"groups>group"`
	Segments []segmentElement `xml:"segments>segment"`
}

type segmentElement struct {
	Bytes     int64  `xml:"bytes,attr"`
	Number    int    `xml:"number,attr"`
	MessageID string `xml:",chardata"`
}

// Release renders a complete document for rel.
func (r *Renderer) Release(rel *nzb.Release) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WriteRelease(&buf, rel); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteRelease streams the document for rel to w.
func (r *Renderer) WriteRelease(w io.Writer, rel *nzb.Release) error {
	doc := document{Xmlns: namespace}
	for _, f := range rel.Files() {
		elem, err := r.fileElement(f)
		if err != nil {
			return fmt.Errorf("release %q: %w", rel.Name, err)
		}
		doc.Files = append(doc.Files, elem)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal release %q: %w", rel.Name, err)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "<?xml version=\"1.0\" encoding=\"%s\" ?>\n", r.opts.Encoding)
	out.WriteString(doctype)
	out.WriteByte('\n')
	out.Write(body)
	out.WriteByte('\n')

	encoded, err := r.encode(out.Bytes())
	if err != nil {
		return fmt.Errorf("encode release %q: %w", rel.Name, err)
	}
	_, err = w.Write(encoded)
	return err
}

// File renders the file element alone, without prologue.
func (r *Renderer) File(f *nzb.File) ([]byte, error) {
	elem, err := r.fileElement(f)
	if err != nil {
		return nil, err
	}
	body, err := xml.MarshalIndent(elem, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal file %q: %w", f.Filename(), err)
	}
	return r.encode(body)
}

func (r *Renderer) fileElement(f *nzb.File) (fileElement, error) {
	groups := f.Groups()
	if len(groups) == 0 {
		if r.opts.FallbackGroup == "" {
			return fileElement{}, fmt.Errorf("file %q: %w", f.Filename(), ErrNoGroups)
		}
		groups = []string{r.opts.FallbackGroup}
	}

	segments := f.Segments()
	if r.opts.SegmentOrder == OrderNumeric {
		slices.SortStableFunc(segments, func(a, b nzb.Segment) int { return a.Number - b.Number })
	}

	elem := fileElement{
		Poster:   f.Poster,
		Date:     r.timestamp(f.Date),
		Subject:  f.Subject,
		Groups:   groups,
		Segments: make([]segmentElement, 0, len(segments)),
	}
	for _, s := range segments {
		elem.Segments = append(elem.Segments, segmentElement{
			Bytes:     s.Bytes,
			Number:    s.Number,
			MessageID: strings.TrimSuffix(strings.TrimPrefix(s.MessageID, "<"), ">"),
		})
	}
	return elem, nil
}

func (r *Renderer) timestamp(value string) int64 {
	if t, ok := ParseDate(value); ok {
		return t.Unix()
	}
	return r.fallback.Unix()
}

func (r *Renderer) encode(utf8 []byte) ([]byte, error) {
	if r.opts.Encoding != EncodingLatin1 {
		return utf8, nil
	}
	enc := encoding.HTMLEscapeUnsupported(charmap.ISO8859_1.NewEncoder())
	return enc.Bytes(utf8)
}

var dateLayouts = []string{
	"2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// ParseDate reads an overview date in one of the two known layouts.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
