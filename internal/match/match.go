// Package match provides the value matchers used to look up releases and
// files by attribute. The set of variants is closed; callers hold a Matcher
// and never inspect which variant it is.
package match

import (
	"regexp"
	"strings"
)

// Matcher reports whether an attribute value is accepted.
type Matcher interface {
	Test(value string) bool
}

type equals string

func (m equals) Test(value string) bool { return string(m) == value }

type pattern struct{ re *regexp.Regexp }

func (m pattern) Test(value string) bool { return m.re != nil && m.re.MatchString(value) }

type predicate func(string) bool

func (m predicate) Test(value string) bool { return m != nil && m(value) }

// Equals accepts exactly want.
func Equals(want string) Matcher { return equals(want) }

// Matches accepts values the expression matches anywhere.
func Matches(re *regexp.Regexp) Matcher { return pattern{re: re} }

// Predicate accepts values for which fn returns true.
func Predicate(fn func(string) bool) Matcher { return predicate(fn) }

// FoldEquals accepts want under Unicode case folding.
func FoldEquals(want string) Matcher {
	return Predicate(func(value string) bool { return strings.EqualFold(value, want) })
}
