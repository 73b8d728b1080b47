// Package rules implements the ordered route/compiler rule table: glob-style
// patterns with combinators, route computations, first-match-wins matching,
// and the overlap check run by `bookforge check`.
package rules

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern decides whether a rule applies to a document path. Paths are
// slash-separated and relative to the source root.
type Pattern interface {
	Match(path string) bool
	String() string
}

type globPattern struct {
	pattern string
}

// Glob builds a pattern from a doublestar glob. `**` matches across path
// segments; a glob without meta characters matches exactly one path.
func Glob(pattern string) Pattern {
	return globPattern{pattern: pattern}
}

func (g globPattern) Match(path string) bool {
	ok, err := doublestar.Match(g.pattern, path)
	return err == nil && ok
}

func (g globPattern) String() string { return g.pattern }

type orPattern struct {
	alternatives []Pattern
}

// Or matches when any alternative matches.
func Or(alternatives ...Pattern) Pattern {
	return orPattern{alternatives: alternatives}
}

func (o orPattern) Match(path string) bool {
	for _, p := range o.alternatives {
		if p.Match(path) {
			return true
		}
	}
	return false
}

func (o orPattern) String() string {
	parts := make([]string, 0, len(o.alternatives))
	for _, p := range o.alternatives {
		parts = append(parts, p.String())
	}
	return "(" + strings.Join(parts, " || ") + ")"
}

type andPattern struct {
	conjuncts []Pattern
}

// And matches when every conjunct matches. Its usual shape is
// And(Glob(...), Not(Glob(...))).
func And(conjuncts ...Pattern) Pattern {
	return andPattern{conjuncts: conjuncts}
}

func (a andPattern) Match(path string) bool {
	for _, p := range a.conjuncts {
		if !p.Match(path) {
			return false
		}
	}
	return true
}

func (a andPattern) String() string {
	parts := make([]string, 0, len(a.conjuncts))
	for _, p := range a.conjuncts {
		parts = append(parts, p.String())
	}
	return "(" + strings.Join(parts, " && ") + ")"
}

type notPattern struct {
	inner Pattern
}

// Not is the complement of a pattern.
func Not(inner Pattern) Pattern {
	return notPattern{inner: inner}
}

func (n notPattern) Match(path string) bool { return !n.inner.Match(path) }

func (n notPattern) String() string { return "!" + n.inner.String() }
