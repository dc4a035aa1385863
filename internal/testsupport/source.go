package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mbra/nzbmonkey/internal/article"
	"github.com/mbra/nzbmonkey/internal/crawl"
)

// ErrNoSuchGroup is returned by FakeSource for unregistered groups.
var ErrNoSuchGroup = errors.New("411 no such newsgroup")

// FakeGroup scripts one group's behaviour.
type FakeGroup struct {
	Info     crawl.GroupInfo
	Records  []article.Record
	GroupErr error
	// OverviewErr is returned after FailAfter records have been delivered.
	OverviewErr error
	FailAfter   int
}

// FakeSource is an in-memory crawl.Source.
type FakeSource struct {
	mu        sync.Mutex
	groups    map[string]FakeGroup
	overviews []string
	quits     int
}

// NewFakeSource returns an empty source.
func NewFakeSource() *FakeSource {
	return &FakeSource{groups: make(map[string]FakeGroup)}
}

// AddGroup registers a group. Records are tagged with name.
func (f *FakeSource) AddGroup(name string, g FakeGroup) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.Info.Name == "" {
		g.Info.Name = name
	}
	f.groups[name] = g
}

func (f *FakeSource) Group(ctx context.Context, name string) (crawl.GroupInfo, error) {
	if err := ctx.Err(); err != nil {
		return crawl.GroupInfo{}, err
	}
	f.mu.Lock()
	g, ok := f.groups[name]
	f.mu.Unlock()
	if !ok {
		return crawl.GroupInfo{}, fmt.Errorf("%s: %w", name, ErrNoSuchGroup)
	}
	if g.GroupErr != nil {
		return crawl.GroupInfo{}, g.GroupErr
	}
	return g.Info, nil
}

func (f *FakeSource) Overview(ctx context.Context, group string, start, end int64, fn func(article.Record) error) error {
	f.mu.Lock()
	g, ok := f.groups[group]
	f.overviews = append(f.overviews, fmt.Sprintf("%s %d-%d", group, start, end))
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", group, ErrNoSuchGroup)
	}

	delivered := 0
	for _, rec := range g.Records {
		if rec.ID < start || rec.ID > end {
			continue
		}
		if g.OverviewErr != nil && delivered >= g.FailAfter {
			return g.OverviewErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		delivered++
	}
	if g.OverviewErr != nil {
		return g.OverviewErr
	}
	return nil
}

// Quit counts session releases.
func (f *FakeSource) Quit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quits++
	return nil
}

// Overviews lists the requested ranges as "group start-end".
func (f *FakeSource) Overviews() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.overviews...)
}

// Quits returns how many times Quit was called.
func (f *FakeSource) Quits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quits
}

// Articles builds records with ids start..end using subject(id).
func Articles(group string, start, end int64, subject func(id int64) string) []article.Record {
	out := make([]article.Record, 0, end-start+1)
	for id := start; id <= end; id++ {
		out = append(out, article.Record{
			ID:        id,
			Subject:   subject(id),
			Poster:    "poster@example.com",
			Date:      "Mon, 2 Jan 2006 15:04:05 -0700",
			MessageID: fmt.Sprintf("<%d.%s@example.com>", id, group),
			Bytes:     750000,
			Lines:     5800,
			Group:     group,
		})
	}
	return out
}
