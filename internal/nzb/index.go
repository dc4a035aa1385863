package nzb

import (
	"slices"

	"github.com/mbra/nzbmonkey/internal/article"
	"github.com/mbra/nzbmonkey/internal/match"
	"github.com/mbra/nzbmonkey/internal/subject"
)

// MatcherFactory builds the matcher used to compare a looked-up value against
// stored names, titles, and filenames. A nil factory selects exact equality
// backed by keyed maps.
type MatcherFactory func(value string) match.Matcher

// Field selects the release attribute used by Find and Split.
type Field int

const (
	FieldName Field = iota
	FieldTitle
)

// Index is the ordered set of releases built during one run. It is not safe
// for concurrent mutation.
type Index struct {
	releases []*Release
	matchers MatcherFactory

	byName  map[string]*Release
	byTitle map[string]*Release
}

// NewIndex returns an empty index. Pass nil for exact matching.
func NewIndex(matchers MatcherFactory) *Index {
	return &Index{
		matchers: matchers,
		byName:   make(map[string]*Release),
		byTitle:  make(map[string]*Release),
	}
}

// Placement describes how one record was resolved by Ingest.
type Placement struct {
	Release    *Release
	File       *File
	NewRelease bool
	NewFile    bool
	NameMiss   bool
	TitleMiss  bool
}

// Ingest places one parsed record into the hierarchy.
func (x *Index) Ingest(rec article.Record, fields subject.Fields) Placement {
	var p Placement

	rel := x.lookupName(fields.Name)
	if rel == nil {
		p.NameMiss = true
		if fields.Title != "" {
			rel = x.lookupTitle(fields.Title)
		}
		if rel == nil {
			p.TitleMiss = true
		}
	}

	var file *File
	if rel == nil {
		rel = newRelease(fields)
		x.addRelease(rel)
		p.NewRelease = true
	} else {
		file = x.lookupFile(rel, fields.Filename())
	}

	if file == nil {
		file = newFile(rec, fields)
		rel.addFile(file)
		p.NewFile = true
	}

	file.append(newSegment(rec, fields))
	p.Release = rel
	p.File = file
	return p
}

// Releases returns the releases in first-seen order.
func (x *Index) Releases() []*Release {
	return slices.Clone(x.releases)
}

// Len returns the number of releases.
func (x *Index) Len() int {
	return len(x.releases)
}

// Find returns every release whose field satisfies m.
func (x *Index) Find(field Field, m match.Matcher) []*Release {
	var out []*Release
	for _, r := range x.releases {
		if m.Test(fieldValue(r, field)) {
			out = append(out, r)
		}
	}
	return out
}

// FindOne returns the first release whose field satisfies m.
func (x *Index) FindOne(field Field, m match.Matcher) (*Release, bool) {
	for _, r := range x.releases {
		if m.Test(fieldValue(r, field)) {
			return r, true
		}
	}
	return nil, false
}

// Split partitions the index into releases whose field satisfies m and the
// rest. Both halves keep first-seen order and share the release values.
func (x *Index) Split(field Field, m match.Matcher) (matched, rest *Index) {
	matched = NewIndex(x.matchers)
	rest = NewIndex(x.matchers)
	for _, r := range x.releases {
		if m.Test(fieldValue(r, field)) {
			matched.addRelease(r)
		} else {
			rest.addRelease(r)
		}
	}
	return matched, rest
}

func (x *Index) addRelease(r *Release) {
	x.releases = append(x.releases, r)
	if _, ok := x.byName[r.Name]; !ok {
		x.byName[r.Name] = r
	}
	if r.Title != "" {
		if _, ok := x.byTitle[r.Title]; !ok {
			x.byTitle[r.Title] = r
		}
	}
}

func (x *Index) lookupName(name string) *Release {
	if x.matchers == nil {
		return x.byName[name]
	}
	m := x.matchers(name)
	for _, r := range x.releases {
		if m.Test(r.Name) {
			return r
		}
	}
	return nil
}

func (x *Index) lookupTitle(title string) *Release {
	if x.matchers == nil {
		return x.byTitle[title]
	}
	m := x.matchers(title)
	for _, r := range x.releases {
		if r.Title != "" && m.Test(r.Title) {
			return r
		}
	}
	return nil
}

func (x *Index) lookupFile(r *Release, filename string) *File {
	if x.matchers == nil {
		return r.byFilename[filename]
	}
	m := x.matchers(filename)
	for _, f := range r.files {
		if m.Test(f.Filename()) {
			return f
		}
	}
	return nil
}

func fieldValue(r *Release, field Field) string {
	if field == FieldTitle {
		return r.Title
	}
	return r.Name
}
