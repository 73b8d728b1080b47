// Package fields provides the pure field resolvers derived from document
// metadata: title splitting, numeric and collated ordering, date formatting,
// and the link rewriters applied to rendered bodies.
package fields

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/contexts"
	"github.com/bookforge/bookforge/internal/pipeline"
)

// SplitTitle splits a title on its FIRST colon into a running title and a
// subtitle. "Foo: Bar: Baz" yields ("Foo", "Bar: Baz"). Whitespace around
// the colon is collapsed: the running title loses trailing space, the
// subtitle is trimmed. Titles without a colon fail with
// ErrNoTitleSubtitleDistinction.
func SplitTitle(title string) (running, subtitle string, err error) {
	before, after, found := strings.Cut(title, ":")
	if !found {
		return "", "", berrors.WrapError(berrors.ErrNoTitleSubtitleDistinction,
			berrors.CategoryMetadata, "title "+strconv.Quote(title))
	}
	return strings.TrimRight(before, " \t"), strings.TrimSpace(after), nil
}

// TitleParts is a context resolving "titlerunning" and "subtitle" from the
// document's "title" metadata field.
func TitleParts() contexts.Context {
	return contexts.Compose(
		contexts.Field("titlerunning", func(_ context.Context, _ *pipeline.Env, item *pipeline.Item) (string, error) {
			running, _, err := splitItemTitle(item)
			return running, err
		}),
		contexts.Field("subtitle", func(_ context.Context, _ *pipeline.Env, item *pipeline.Item) (string, error) {
			_, subtitle, err := splitItemTitle(item)
			return subtitle, err
		}),
	)
}

func splitItemTitle(item *pipeline.Item) (string, string, error) {
	title, ok := item.Field("title")
	if !ok {
		return "", "", berrors.MissingField("title").WithDocument(item.ID)
	}
	return SplitTitle(title)
}

// SortNumericAsc orders items ascending by the integer value of a metadata
// key. Missing or unparsable values sort as 0; the sort is stable, so ties
// keep their original relative order. Total over any list, including empty.
func SortNumericAsc(items []*pipeline.Item, key string) []*pipeline.Item {
	sorted := make([]*pipeline.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return numericKey(sorted[i], key) < numericKey(sorted[j], key)
	})
	return sorted
}

// SortNumericDesc is SortNumericAsc in reverse order (highest first).
func SortNumericDesc(items []*pipeline.Item, key string) []*pipeline.Item {
	sorted := make([]*pipeline.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return numericKey(sorted[i], key) > numericKey(sorted[j], key)
	})
	return sorted
}

func numericKey(item *pipeline.Item, key string) int {
	value, ok := item.Field(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}

// SortCollated orders items by a metadata key using locale-aware string
// collation (used for contributor name lists). Items missing the key sort
// first; the sort is stable.
func SortCollated(items []*pipeline.Item, key string) []*pipeline.Item {
	coll := collate.New(language.English, collate.IgnoreCase)
	sorted := make([]*pipeline.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _ := sorted[i].Field(key)
		b, _ := sorted[j].Field(key)
		return coll.CompareString(a, b) < 0
	})
	return sorted
}

// Recognized layouts for the "date" metadata field, most specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
}

// ParseDate parses a metadata date value against the recognized layouts.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, berrors.WrapError(lastErr, berrors.CategoryMetadata,
		"unrecognized date "+strconv.Quote(value))
}

// DateField resolves key by formatting the document's "date" metadata with
// the given layout.
func DateField(key, layout string) contexts.Context {
	return contexts.Field(key, func(_ context.Context, _ *pipeline.Env, item *pipeline.Item) (string, error) {
		value, ok := item.Field("date")
		if !ok {
			return "", berrors.MissingField("date").WithDocument(item.ID)
		}
		t, err := ParseDate(value)
		if err != nil {
			return "", err
		}
		return t.Format(layout), nil
	})
}

// FormatRelative renders then relative to now ("today", "yesterday",
// "N days ago"), falling back to the date itself beyond thirty days.
func FormatRelative(then, now time.Time) string {
	days := int(now.Sub(then).Hours() / 24)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days <= 30:
		return strconv.Itoa(days) + " days ago"
	default:
		return then.Format("January 2, 2006")
	}
}
