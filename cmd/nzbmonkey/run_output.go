package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mbra/nzbmonkey/internal/crawl"
	"github.com/mbra/nzbmonkey/internal/indexer"
	"github.com/mbra/nzbmonkey/internal/nzb"
)

// errPartial marks a run that produced output but had failures. It maps to
// exit status 1.
var errPartial = errors.New("run finished with failures")

func printGroupReport(out io.Writer, report *crawl.Report, colorize bool) {
	if report == nil || len(report.Groups) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.Groups))
	for _, g := range report.Groups {
		status := "ok"
		switch {
		case g.Err != nil:
			status = "failed"
		case g.Skipped:
			status = "up to date"
		}
		window := "-"
		if !g.Window.Empty() {
			window = fmt.Sprintf("%d-%d", g.Window.Start, g.Window.End)
		}
		rows = append(rows, []string{
			g.Group,
			status,
			window,
			humanize.Comma(g.Records),
			yesNo(g.Persisted),
			g.Duration.Round(time.Millisecond).String(),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Group", "Status", "Window", "Records", "Saved", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
		nil,
	))
	for _, g := range report.Failed() {
		fmt.Fprintln(out, renderStatusLine(g.Group, statusError, g.Err.Error(), colorize))
	}
}

func printDocuments(out io.Writer, docs []indexer.Document, colorize bool) {
	if len(docs) == 0 {
		fmt.Fprintln(out, "No releases found")
		return
	}
	rows := make([][]string, 0, len(docs))
	var totalBytes int64
	var totalSegments int
	for _, d := range docs {
		rel := d.Release
		totalBytes += rel.Bytes()
		totalSegments += rel.Segments()
		rows = append(rows, []string{
			rel.Name,
			d.Status.String(),
			filesColumn(rel),
			strconv.Itoa(rel.Segments()),
			humanize.Bytes(uint64(max(rel.Bytes(), 0))),
			d.Result,
		})
	}
	footer := []string{
		fmt.Sprintf("%d releases", len(docs)),
		"",
		"",
		strconv.Itoa(totalSegments),
		humanize.Bytes(uint64(max(totalBytes, 0))),
		"",
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Release", "Status", "Files", "Segments", "Size", "Document"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
		footer,
	))
	for _, d := range docs {
		if d.Err != nil {
			fmt.Fprintln(out, renderStatusLine(d.Release.Name, statusError, d.Err.Error(), colorize))
		}
	}
}

func filesColumn(rel *nzb.Release) string {
	if rel.ExpectedFiles <= 0 {
		return strconv.Itoa(rel.Len())
	}
	return fmt.Sprintf("%d/%d", rel.Len(), rel.ExpectedFiles)
}

func runOutcome(res *indexer.Result) error {
	if res == nil {
		return nil
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("%w: %w", errPartial, err)
	}
	return nil
}
