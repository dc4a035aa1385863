package crawl

// GroupInfo is the metadata a source reports for one group.
type GroupInfo struct {
	Name  string
	Count int64
	Low   int64
	High  int64
}

// WindowParams controls ComputeWindow.
type WindowParams struct {
	// DefaultDelta is the lookback used for a group with no cursor.
	DefaultDelta int64
	// MaxWindow bounds catch-up after long gaps. 0 means unbounded.
	MaxWindow int64
	// Override, when HasOverride is set, replaces the cursor-derived size.
	Override    int64
	HasOverride bool
}

// Window is an inclusive article range. Size zero means nothing to fetch.
type Window struct {
	Start int64
	End   int64
	Size  int64
	// Clamped is set when the cursor-derived size was cut to MaxWindow.
	Clamped bool
	// Behind is set when the cursor is ahead of the server's high bound.
	Behind bool
}

// Empty reports whether the window should be skipped.
func (w Window) Empty() bool {
	return w.Size <= 0
}

// ComputeWindow derives the fetch range for one group. cursor is the last
// article id already scanned; zero means the group was never scanned.
func ComputeWindow(info GroupInfo, cursor int64, p WindowParams) Window {
	w := Window{End: info.High}

	switch {
	case p.HasOverride:
		w.Size = p.Override
	case cursor <= 0:
		w.Size = p.DefaultDelta
	default:
		w.Size = info.High - cursor
		if w.Size < 0 {
			w.Behind = true
		}
		if p.MaxWindow > 0 && w.Size > p.MaxWindow {
			w.Size = p.MaxWindow
			w.Clamped = true
		}
	}
	if w.Size < 0 || info.High <= 0 {
		w.Size = 0
	}

	w.Start = info.High - w.Size
	if w.Start < 0 {
		w.Start = 0
	}
	if info.Low > 0 && w.Start < info.Low {
		w.Start = info.Low
		// Start == End still names one article to fetch.
		if w.Size > 0 {
			w.Size = max(w.End-w.Start, 1)
		}
	}
	if w.Start > w.End {
		w.Size = 0
	}
	return w
}
