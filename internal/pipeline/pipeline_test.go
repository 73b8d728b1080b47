package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/bookforge/bookforge/internal/errors"
)

func TestChainRunsInOrder(t *testing.T) {
	var order []string
	chain := Chain{
		StageFunc("first", func(_ context.Context, _ *Env, item *Item) error {
			order = append(order, "first")
			item.Body += "a"
			return nil
		}),
		StageFunc("second", func(_ context.Context, _ *Env, item *Item) error {
			order = append(order, "second")
			item.Body += "b"
			return nil
		}),
	}

	item := &Item{ID: "doc.md"}
	require.NoError(t, chain.Run(context.Background(), &Env{}, item))
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "ab", item.Body)
}

func TestChainAbortsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	chain := Chain{
		StageFunc("fails", func(_ context.Context, _ *Env, _ *Item) error { return boom }),
		StageFunc("never", func(_ context.Context, _ *Env, _ *Item) error { ran = true; return nil }),
	}

	err := chain.Run(context.Background(), &Env{}, &Item{ID: "doc.md"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, ran, "stages after a failure must not run")

	var be *berrors.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "doc.md", be.Context["document"])
}

func TestSnapshotsWriteOnce(t *testing.T) {
	snaps := NewSnapshots()
	require.NoError(t, snaps.Save("posts/a.md", "content", "teaser body"))

	body, err := snaps.Load("posts/a.md", "content")
	require.NoError(t, err)
	assert.Equal(t, "teaser body", body)

	err = snaps.Save("posts/a.md", "content", "changed")
	assert.ErrorIs(t, err, berrors.ErrSnapshotExists)

	// The saved body is unaffected by the rejected overwrite.
	body, err = snaps.Load("posts/a.md", "content")
	require.NoError(t, err)
	assert.Equal(t, "teaser body", body)
}

func TestSnapshotMissing(t *testing.T) {
	snaps := NewSnapshots()
	_, err := snaps.Load("posts/a.md", "never-saved")
	assert.ErrorIs(t, err, berrors.ErrSnapshotMissing)
	assert.False(t, snaps.Has("posts/a.md", "never-saved"))
}

func TestSaveSnapshotStage(t *testing.T) {
	env := &Env{Snapshots: NewSnapshots()}
	item := &Item{ID: "posts/a.md", Body: "rendered"}
	require.NoError(t, Chain{SaveSnapshot("content")}.Run(context.Background(), env, item))

	body, err := env.Snapshots.Load("posts/a.md", "content")
	require.NoError(t, err)
	assert.Equal(t, "rendered", body)
}

func TestRelativizeURLs(t *testing.T) {
	tests := []struct {
		name  string
		route string
		body  string
		want  string
	}{
		{
			name:  "nested route climbs to root",
			route: "chapters/part1/lists.html",
			body:  `<link href="/css/style.css"><a href="/index.html">home</a>`,
			want:  `<link href="../../css/style.css"><a href="../../index.html">home</a>`,
		},
		{
			name:  "top level route",
			route: "index.html",
			body:  `<a href="/about.html">about</a>`,
			want:  `<a href="./about.html">about</a>`,
		},
		{
			name:  "absolute and protocol-relative URLs untouched",
			route: "posts/a.html",
			body:  `<a href="https://example.org/x">x</a><script src="//cdn.example/x.js"></script>`,
			want:  `<a href="https://example.org/x">x</a><script src="//cdn.example/x.js"></script>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &Item{ID: "doc", Route: tt.route, Body: tt.body}
			require.NoError(t, Chain{RelativizeURLs()}.Run(context.Background(), &Env{}, item))
			assert.Equal(t, tt.want, item.Body)
		})
	}
}

func TestRelativizeSkipsUnroutedItems(t *testing.T) {
	item := &Item{ID: "templates/default.html", Body: `<a href="/x.html">x</a>`}
	require.NoError(t, Chain{RelativizeURLs()}.Run(context.Background(), &Env{}, item))
	assert.Equal(t, `<a href="/x.html">x</a>`, item.Body)
}
