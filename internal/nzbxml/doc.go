// Package nzbxml renders releases as NZB documents.
//
// Documents carry the newzBin 1.0 DOCTYPE and the 2003 namespace. Each file
// element lists the groups its segments were seen under and one segment
// element per article, with the message id written without angle brackets.
// Rendering is read-only and repeatable: a Renderer captures its fallback
// timestamp once, so the same release always renders to the same bytes.
package nzbxml
