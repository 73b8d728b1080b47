package fields

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/pipeline"
)

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		name         string
		title        string
		wantRunning  string
		wantSubtitle string
	}{
		{
			name:         "simple split",
			title:        "Lists: Lists and Higher-Order Functions",
			wantRunning:  "Lists",
			wantSubtitle: "Lists and Higher-Order Functions",
		},
		{
			name:         "splits on first colon only",
			title:        "A: B: C",
			wantRunning:  "A",
			wantSubtitle: "B: C",
		},
		{
			name:         "whitespace around colon collapsed",
			title:        "Foo \t:   Bar",
			wantRunning:  "Foo",
			wantSubtitle: "Bar",
		},
		{
			name:         "empty subtitle",
			title:        "Foo:",
			wantRunning:  "Foo",
			wantSubtitle: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			running, subtitle, err := SplitTitle(tt.title)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRunning, running)
			assert.Equal(t, tt.wantSubtitle, subtitle)
		})
	}
}

func TestSplitTitleNoColon(t *testing.T) {
	_, _, err := SplitTitle("Just a Plain Title")
	assert.ErrorIs(t, err, berrors.ErrNoTitleSubtitleDistinction)
}

func TestTitlePartsContext(t *testing.T) {
	item := &pipeline.Item{
		ID:       "src/Lists.lagda.md",
		Metadata: map[string]string{"title": "Lists: Lists and Higher-Order Functions"},
	}
	env := &pipeline.Env{Snapshots: pipeline.NewSnapshots()}
	ctx := TitleParts()

	running, err := ctx.Resolve(context.Background(), env, "titlerunning", item)
	require.NoError(t, err)
	assert.Equal(t, "Lists", running.Str)

	subtitle, err := ctx.Resolve(context.Background(), env, "subtitle", item)
	require.NoError(t, err)
	assert.Equal(t, "Lists and Higher-Order Functions", subtitle.Str)
}

func itemsWithCounts(counts ...string) []*pipeline.Item {
	items := make([]*pipeline.Item, 0, len(counts))
	for i, c := range counts {
		meta := map[string]string{"name": string(rune('a' + i))}
		if c != "" {
			meta["count"] = c
		}
		items = append(items, &pipeline.Item{ID: string(rune('a' + i)), Metadata: meta})
	}
	return items
}

func counts(items []*pipeline.Item, key string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		v, _ := it.Field(key)
		out = append(out, v)
	}
	return out
}

func TestSortNumeric(t *testing.T) {
	items := itemsWithCounts("3", "1", "2")

	asc := SortNumericAsc(items, "count")
	assert.Equal(t, []string{"1", "2", "3"}, counts(asc, "count"))

	desc := SortNumericDesc(items, "count")
	assert.Equal(t, []string{"3", "2", "1"}, counts(desc, "count"))

	// The input order is untouched.
	assert.Equal(t, []string{"3", "1", "2"}, counts(items, "count"))
}

func TestSortNumericStable(t *testing.T) {
	// Equal keys keep their original relative order.
	items := []*pipeline.Item{
		{ID: "first", Metadata: map[string]string{"count": "1"}},
		{ID: "second", Metadata: map[string]string{"count": "1"}},
		{ID: "third", Metadata: map[string]string{"count": "0"}},
	}
	asc := SortNumericAsc(items, "count")
	assert.Equal(t, "third", asc[0].ID)
	assert.Equal(t, "first", asc[1].ID)
	assert.Equal(t, "second", asc[2].ID)
}

func TestSortNumericMissingKeysAsZero(t *testing.T) {
	items := itemsWithCounts("2", "", "not-a-number", "-1")
	asc := SortNumericAsc(items, "count")
	ids := make([]string, 0, len(asc))
	for _, it := range asc {
		ids = append(ids, it.ID)
	}
	// -1 < 0 (missing) == 0 (unparsable) < 2, stable among the zeros.
	assert.Equal(t, []string{"d", "b", "c", "a"}, ids)
}

func TestSortNumericEmpty(t *testing.T) {
	assert.Empty(t, SortNumericAsc(nil, "count"))
	assert.Empty(t, SortNumericDesc([]*pipeline.Item{}, "count"))
}

func TestSortCollated(t *testing.T) {
	items := []*pipeline.Item{
		{ID: "1", Metadata: map[string]string{"name": "wadler"}},
		{ID: "2", Metadata: map[string]string{"name": "Adams"}},
		{ID: "3", Metadata: map[string]string{"name": "kokke"}},
	}
	sorted := SortCollated(items, "name")
	assert.Equal(t, []string{"Adams", "kokke", "wadler"}, counts(sorted, "name"))
}

func TestParseDate(t *testing.T) {
	for _, value := range []string{"2024-03-01", "2024-03-01T10:30:00Z", "March 1, 2024"} {
		parsed, err := ParseDate(value)
		require.NoError(t, err, value)
		assert.Equal(t, 2024, parsed.Year())
	}

	_, err := ParseDate("next tuesday")
	assert.Error(t, err)
}

func TestDateField(t *testing.T) {
	item := &pipeline.Item{ID: "posts/a.md", Metadata: map[string]string{"date": "2024-03-01"}}
	env := &pipeline.Env{}

	value, err := DateField("published", "January 2, 2006").Resolve(context.Background(), env, "published", item)
	require.NoError(t, err)
	assert.Equal(t, "March 1, 2024", value.Str)
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "today", FormatRelative(now, now))
	assert.Equal(t, "yesterday", FormatRelative(now.AddDate(0, 0, -1), now))
	assert.Equal(t, "5 days ago", FormatRelative(now.AddDate(0, 0, -5), now))
	assert.Equal(t, "January 1, 2024", FormatRelative(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), now))
}
