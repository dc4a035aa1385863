// Package nzb aggregates parsed article records into releases.
//
// The hierarchy is Index → Release → File → Segment. Every collection keeps
// insertion order and nothing is removed once added. A Release is resolved
// by base name first, then by title; a File inside an existing Release is
// resolved by its full filename. Expected counts are taken from the record
// that created the entity and never reconciled afterwards.
//
// Verify walks a Release depth-first and returns the first proven gap as a
// *FileMissingError or *SegmentMissingError (both match ErrIncomplete), or
// ErrUnknownCount when no gap is proven but an expected count is missing.
package nzb
