package indexer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mbra/nzbmonkey/internal/config"
	"github.com/mbra/nzbmonkey/internal/fileutil"
	"github.com/mbra/nzbmonkey/internal/logging"
	"github.com/mbra/nzbmonkey/internal/nzb"
	"github.com/mbra/nzbmonkey/internal/nzbxml"
	"github.com/mbra/nzbmonkey/internal/textutil"
)

// Document outcomes.
const (
	ResultWritten   = "written"
	ResultUnchanged = "unchanged"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
	ResultDryRun    = "dry-run"
)

// Document describes what happened to one release's NZB.
type Document struct {
	Release *nzb.Release
	Path    string
	Status  nzb.Status
	Result  string
	Err     error
}

// DocumentError reports a release whose document could not be produced.
type DocumentError struct {
	Release string
	Err     error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("release %s: %v", e.Release, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

type documentWriter struct {
	dir      string
	skip     bool
	dryRun   bool
	renderer *nzbxml.Renderer
	logger   *slog.Logger
	used     map[string]int
}

func newDocumentWriter(cfg *config.Config, dryRun bool, now func() time.Time, logger *slog.Logger) (*documentWriter, error) {
	renderer, err := nzbxml.NewRenderer(nzbxml.Options{
		Encoding:      cfg.Output.Encoding,
		SegmentOrder:  nzbxml.SegmentOrder(cfg.Output.SegmentOrder),
		FallbackGroup: cfg.Output.FallbackGroup,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	return &documentWriter{
		dir:      cfg.Output.Dir,
		skip:     cfg.Output.SkipIncomplete(),
		dryRun:   dryRun,
		renderer: renderer,
		logger:   logger,
		used:     make(map[string]int),
	}, nil
}

// writeAll renders releases in index order.
func (w *documentWriter) writeAll(index *nzb.Index) []Document {
	releases := index.Releases()
	docs := make([]Document, 0, len(releases))
	for _, rel := range releases {
		docs = append(docs, w.write(rel))
	}
	return docs
}

func (w *documentWriter) write(rel *nzb.Release) Document {
	doc := Document{Release: rel, Status: rel.Status()}
	log := w.logger.With(logging.Release(rel.Name))

	// skip keeps only releases proven complete; an unknown part count cannot be.
	if doc.Status != nzb.StatusComplete && w.skip {
		doc.Result = ResultSkipped
		log.Info("release skipped",
			logging.String("status", doc.Status.String()),
			logging.String("reason", rel.Verify().Error()),
		)
		return doc
	}

	name := w.fileName(rel)
	if name == "" {
		return w.fail(doc, log, errors.New("release name is empty after sanitizing"))
	}
	doc.Path = filepath.Join(w.dir, name)

	data, err := w.renderer.Release(rel)
	if err != nil {
		return w.fail(doc, log, err)
	}
	if w.dryRun {
		doc.Result = ResultDryRun
		return doc
	}
	if fileutil.SameContent(doc.Path, data) {
		doc.Result = ResultUnchanged
		log.Debug("document unchanged", logging.String("path", doc.Path))
		return doc
	}
	err = fileutil.WriteAtomic(doc.Path, 0o644, func(out io.Writer) error {
		_, err := out.Write(data)
		return err
	})
	if err != nil {
		return w.fail(doc, log, err)
	}
	doc.Result = ResultWritten
	log.Info("document written",
		logging.String("path", doc.Path),
		logging.String("status", doc.Status.String()),
		logging.Int("files", rel.Len()),
		logging.Int("segments", rel.Segments()),
		logging.Int64("release_bytes", rel.Bytes()),
	)
	return doc
}

func (w *documentWriter) fail(doc Document, log *slog.Logger, err error) Document {
	doc.Result = ResultFailed
	doc.Err = &DocumentError{Release: doc.Release.Name, Err: err}
	logging.WarnWithContext(log, "document not written", "document_write_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "release missing from output this run"),
		logging.String(logging.FieldErrorHint, "set output.fallback_group or check output.dir permissions"),
	)
	return doc
}

// fileName sanitizes the document name and disambiguates releases whose
// names collapse to the same file within one run.
func (w *documentWriter) fileName(rel *nzb.Release) string {
	base := textutil.SanitizeFileName(rel.Name)
	if base == "" {
		return ""
	}
	w.used[base]++
	if n := w.used[base]; n > 1 {
		base += " (" + strconv.Itoa(n) + ")"
	}
	return base + ".nzb"
}
