package nzb

import (
	"github.com/mbra/nzbmonkey/internal/article"
	"github.com/mbra/nzbmonkey/internal/match"
	"github.com/mbra/nzbmonkey/internal/subject"
)

// Stats counts what happened to the records of one run.
type Stats struct {
	Seen             int
	Discarded        int
	Considered       int
	ReleasesCreated  int
	FilesCreated     int
	SegmentsAppended int
	NameMisses       int
	TitleMisses      int
}

// Builder parses records and feeds matches into an Index.
type Builder struct {
	parser *subject.Parser
	index  *Index
	stats  Stats
}

// NewBuilder wires parser to a fresh index using matchers (nil = exact).
func NewBuilder(parser *subject.Parser, matchers MatcherFactory) *Builder {
	if parser == nil {
		parser = subject.Default()
	}
	return &Builder{parser: parser, index: NewIndex(matchers)}
}

// Add parses rec and ingests it. It returns false for records whose subject
// does not match; those are counted as discarded.
func (b *Builder) Add(rec article.Record) bool {
	b.stats.Seen++
	fields, ok := b.parser.Parse(rec.Subject)
	if !ok {
		b.stats.Discarded++
		return false
	}
	b.stats.Considered++

	p := b.index.Ingest(rec, fields)
	if p.NewRelease {
		b.stats.ReleasesCreated++
	}
	if p.NewFile {
		b.stats.FilesCreated++
	}
	if p.NameMiss {
		b.stats.NameMisses++
	}
	if p.TitleMiss {
		b.stats.TitleMisses++
	}
	b.stats.SegmentsAppended++
	return true
}

// Index returns the index being built.
func (b *Builder) Index() *Index {
	return b.index
}

// Stats returns a snapshot of the counters.
func (b *Builder) Stats() Stats {
	return b.stats
}

// MatchersFor maps a matching mode name to a factory. Unknown modes fall back
// to exact matching; config validation rejects them earlier.
func MatchersFor(mode string) MatcherFactory {
	switch mode {
	case "fold":
		return func(value string) match.Matcher { return match.FoldEquals(value) }
	default:
		return nil
	}
}
