// Package subject extracts release, file, and segment markers from Usenet
// article subject lines.
//
// A subject such as
//
//	Foo - [1/2] - "file.part1.rar" yEnc (1/3)
//
// carries the release title ("Foo"), the file's position in the release
// (1 of 2), the quoted filename split into base name, qualifier, and type,
// and the article's position within the file (segment 1 of 3). Only the
// quoted filename and the trailing segment marker are mandatory; every other
// marker may be absent, in which case the corresponding field stays zero.
//
// Parsing never fails on malformed input: a subject that does not match is
// reported with ok == false so callers can count and discard it. Only an
// invalid custom pattern is an error, raised once when the Parser is built.
package subject
