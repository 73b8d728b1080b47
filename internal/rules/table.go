package rules

import (
	"fmt"

	"github.com/bookforge/bookforge/internal/pipeline"
)

// Rule binds a path pattern to a route computation and a compiler chain.
type Rule struct {
	Name    string
	Pattern Pattern
	Route   Route
	Chain   pipeline.Chain
}

// Table is the ordered rule list assembled once at startup. Rules are
// evaluated in declaration order with first-match-wins semantics, so
// overlapping patterns must be declared most-specific-first; see Overlaps.
type Table struct {
	rules []Rule
}

// NewTable builds a table from rules in declaration order.
func NewTable(rules ...Rule) *Table {
	return &Table{rules: rules}
}

// Rules returns the rules in declaration order.
func (t *Table) Rules() []Rule { return t.rules }

// Match returns the first rule whose pattern matches path. A document
// matching no rule is silently excluded from the build; that is not an
// error.
func (t *Table) Match(path string) (*Rule, bool) {
	for i := range t.rules {
		if t.rules[i].Pattern.Match(path) {
			return &t.rules[i], true
		}
	}
	return nil, false
}

// Overlap reports a document path matched by two rules, where declaration
// order rather than specificity decides which chain applies.
type Overlap struct {
	Path    string
	Applied string // rule that wins by declaration order
	Shadowy string // later rule that also matches
}

func (o Overlap) String() string {
	return fmt.Sprintf("%s: rule %q shadows rule %q", o.Path, o.Applied, o.Shadowy)
}

// Overlaps checks every discovered path against all rules and reports those
// matched by more than one. Reordering rules silently misroutes such
// documents, so `bookforge check` surfaces them explicitly instead of
// relying on comment discipline.
func (t *Table) Overlaps(paths []string) []Overlap {
	var out []Overlap
	for _, path := range paths {
		var matched []*Rule
		for i := range t.rules {
			if t.rules[i].Pattern.Match(path) {
				matched = append(matched, &t.rules[i])
			}
		}
		// Unmatched paths are excluded documents, not overlaps.
		if len(matched) < 2 {
			continue
		}
		for _, shadowed := range matched[1:] {
			out = append(out, Overlap{
				Path:    path,
				Applied: matched[0].Name,
				Shadowy: shadowed.Name,
			})
		}
	}
	return out
}
