package nzb

import (
	"slices"

	"github.com/mbra/nzbmonkey/internal/article"
	"github.com/mbra/nzbmonkey/internal/subject"
)

// Segment is one article contributing to a File.
type Segment struct {
	Number    int
	Count     int
	Bytes     int64
	MessageID string
	Subject   string
	Poster    string
	Date      string
	Group     string
}

func newSegment(rec article.Record, fields subject.Fields) Segment {
	return Segment{
		Number:    fields.SegmentNumber,
		Count:     fields.SegmentCount,
		Bytes:     rec.Bytes,
		MessageID: rec.MessageID,
		Subject:   rec.Subject,
		Poster:    rec.Poster,
		Date:      rec.Date,
		Group:     rec.Group,
	}
}

// File groups the segments believed to form one physical file. Metadata is
// copied from the segment that created it.
type File struct {
	Name             string
	Qualifier        string
	Type             string
	Subject          string
	Poster           string
	Date             string
	ExpectedSegments int

	segments []Segment
	groups   []string
}

func newFile(rec article.Record, fields subject.Fields) *File {
	return &File{
		Name:             fields.Name,
		Qualifier:        fields.Qualifier,
		Type:             fields.Type,
		Subject:          rec.Subject,
		Poster:           rec.Poster,
		Date:             rec.Date,
		ExpectedSegments: fields.SegmentCount,
	}
}

// Filename joins base name, qualifier, and type.
func (f *File) Filename() string {
	return subject.Fields{Name: f.Name, Qualifier: f.Qualifier, Type: f.Type}.Filename()
}

// Segments returns the segments in arrival order.
func (f *File) Segments() []Segment {
	return slices.Clone(f.segments)
}

// Len returns the number of segments.
func (f *File) Len() int {
	return len(f.segments)
}

// Groups returns every group the file was seen under, first-seen first.
func (f *File) Groups() []string {
	return slices.Clone(f.groups)
}

// Bytes sums the declared segment sizes.
func (f *File) Bytes() int64 {
	var total int64
	for _, s := range f.segments {
		total += s.Bytes
	}
	return total
}

func (f *File) append(seg Segment) {
	f.segments = append(f.segments, seg)
	if seg.Group != "" && !slices.Contains(f.groups, seg.Group) {
		f.groups = append(f.groups, seg.Group)
	}
}

// Release groups files believed to belong to one posting.
type Release struct {
	Title         string
	Name          string
	ExpectedFiles int

	files      []*File
	byFilename map[string]*File
}

func newRelease(fields subject.Fields) *Release {
	return &Release{
		Title:         fields.Title,
		Name:          fields.Name,
		ExpectedFiles: fields.PartCount,
		byFilename:    make(map[string]*File),
	}
}

// DocumentName is the file name the release is written under.
func (r *Release) DocumentName() string {
	return r.Name + ".nzb"
}

// Files returns the files in first-seen order.
func (r *Release) Files() []*File {
	return slices.Clone(r.files)
}

// Len returns the number of files.
func (r *Release) Len() int {
	return len(r.files)
}

// Segments counts segments across all files.
func (r *Release) Segments() int {
	n := 0
	for _, f := range r.files {
		n += f.Len()
	}
	return n
}

// Bytes sums the declared sizes of all files.
func (r *Release) Bytes() int64 {
	var total int64
	for _, f := range r.files {
		total += f.Bytes()
	}
	return total
}

// Groups returns the union of file groups in first-seen order.
func (r *Release) Groups() []string {
	var out []string
	for _, f := range r.files {
		for _, g := range f.groups {
			if !slices.Contains(out, g) {
				out = append(out, g)
			}
		}
	}
	return out
}

func (r *Release) addFile(f *File) {
	r.files = append(r.files, f)
	if _, ok := r.byFilename[f.Filename()]; !ok {
		r.byFilename[f.Filename()] = f
	}
}
