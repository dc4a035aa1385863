package nzb

import (
	"errors"
	"fmt"
)

var (
	// ErrIncomplete matches every proven gap.
	ErrIncomplete = errors.New("incomplete")
	// ErrUnknownCount means completeness cannot be proven because an
	// expected count was never declared.
	ErrUnknownCount = errors.New("expected count unknown")
)

// FileMissingError reports a release with fewer files than declared.
type FileMissingError struct {
	Release  string
	Expected int
	Actual   int
}

func (e *FileMissingError) Error() string {
	return fmt.Sprintf("release %q: %d of %d files present", e.Release, e.Actual, e.Expected)
}

func (e *FileMissingError) Is(target error) bool { return target == ErrIncomplete }

// SegmentMissingError reports a file with fewer segments than declared.
type SegmentMissingError struct {
	File     string
	Expected int
	Actual   int
}

func (e *SegmentMissingError) Error() string {
	return fmt.Sprintf("file %q: %d of %d segments present", e.File, e.Actual, e.Expected)
}

func (e *SegmentMissingError) Is(target error) bool { return target == ErrIncomplete }

// Status summarises Verify for listings.
type Status int

const (
	StatusComplete Status = iota
	StatusIncomplete
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusComplete
	case errors.Is(err, ErrIncomplete):
		return StatusIncomplete
	default:
		return StatusUnknown
	}
}

// Verify returns nil when the file has at least the declared segment count.
func (f *File) Verify() error {
	if f.ExpectedSegments <= 0 {
		return fmt.Errorf("file %q: %w", f.Filename(), ErrUnknownCount)
	}
	if len(f.segments) < f.ExpectedSegments {
		return &SegmentMissingError{File: f.Filename(), Expected: f.ExpectedSegments, Actual: len(f.segments)}
	}
	return nil
}

// Complete reports whether Verify succeeds.
func (f *File) Complete() bool { return f.Verify() == nil }

// Status classifies the file.
func (f *File) Status() Status { return statusOf(f.Verify()) }

// Verify checks the release's own file count, then each file in order. The
// first proven gap wins over an unknown count anywhere in the walk.
func (r *Release) Verify() error {
	var unknown error
	if r.ExpectedFiles <= 0 {
		unknown = fmt.Errorf("release %q: %w", r.Name, ErrUnknownCount)
	} else if len(r.files) < r.ExpectedFiles {
		return &FileMissingError{Release: r.Name, Expected: r.ExpectedFiles, Actual: len(r.files)}
	}
	for _, f := range r.files {
		err := f.Verify()
		if err == nil {
			continue
		}
		if errors.Is(err, ErrIncomplete) {
			return err
		}
		if unknown == nil {
			unknown = err
		}
	}
	return unknown
}

// Complete reports whether Verify succeeds.
func (r *Release) Complete() bool { return r.Verify() == nil }

// Status classifies the release.
func (r *Release) Status() Status { return statusOf(r.Verify()) }
