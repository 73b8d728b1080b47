package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookforge/bookforge/internal/contexts"
	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/metadata"
	"github.com/bookforge/bookforge/internal/pipeline"
)

func testEnv(t *testing.T) *pipeline.Env {
	t.Helper()
	return &pipeline.Env{
		Store:     metadata.NewStore(t.TempDir()),
		Snapshots: pipeline.NewSnapshots(),
	}
}

func TestApplyFields(t *testing.T) {
	item := &pipeline.Item{
		ID:       "posts/a.md",
		Body:     "<p>rendered</p>",
		Metadata: map[string]string{"title": "Hello"},
	}
	fctx := contexts.Default()

	out, err := Apply(context.Background(), testEnv(t), `<h1>{{.Field "title"}}</h1>{{.Body}}`, fctx, item)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hello</h1><p>rendered</p>", out)
}

func TestApplyMissingFieldAborts(t *testing.T) {
	item := &pipeline.Item{ID: "posts/a.md", Metadata: map[string]string{}}
	_, err := Apply(context.Background(), testEnv(t), `{{.Field "subtitle"}}`, contexts.Default(), item)
	require.Error(t, err)
	assert.ErrorIs(t, err, berrors.ErrMissingField)
}

func TestApplyConditional(t *testing.T) {
	fctx := contexts.Default()
	tmpl := `{{if .Has "subtitle"}}{{.Field "subtitle"}}{{else}}no subtitle{{end}}`

	with := &pipeline.Item{ID: "a", Metadata: map[string]string{"subtitle": "Part One"}}
	out, err := Apply(context.Background(), testEnv(t), tmpl, fctx, with)
	require.NoError(t, err)
	assert.Equal(t, "Part One", out)

	without := &pipeline.Item{ID: "b", Metadata: map[string]string{}}
	out, err = Apply(context.Background(), testEnv(t), tmpl, fctx, without)
	require.NoError(t, err)
	assert.Equal(t, "no subtitle", out)
}

func TestHasPropagatesResolverFailures(t *testing.T) {
	fctx := contexts.Compose(
		contexts.Field("when", func(context.Context, *pipeline.Env, *pipeline.Item) (string, error) {
			return "", berrors.New(berrors.CategoryMetadata, berrors.SeverityError, "unparsable date")
		}),
		contexts.Default(),
	)

	// A field that exists but fails to resolve is not "absent"; the render
	// must surface the failure instead of taking the else branch.
	item := &pipeline.Item{ID: "posts/a.md", Metadata: map[string]string{}}
	_, err := Apply(context.Background(), testEnv(t),
		`{{if .Has "when"}}{{.Field "when"}}{{else}}undated{{end}}`, fctx, item)
	require.Error(t, err)
	assert.NotErrorIs(t, err, berrors.ErrMissingField)
	assert.Contains(t, err.Error(), "unparsable date")
}

func TestApplyListIteration(t *testing.T) {
	posts := []*pipeline.Item{
		{ID: "posts/c.md", Metadata: map[string]string{"title": "Third"}},
		{ID: "posts/a.md", Metadata: map[string]string{"title": "First"}},
	}
	fctx := contexts.Compose(
		contexts.ListField("posts", contexts.Metadata(), func(context.Context, *pipeline.Env) ([]*pipeline.Item, error) {
			return posts, nil
		}),
		contexts.Default(),
	)

	item := &pipeline.Item{ID: "index.md", Metadata: map[string]string{}}
	out, err := Apply(context.Background(), testEnv(t),
		`{{range .List "posts"}}[{{.Field "title"}}]{{end}}`, fctx, item)
	require.NoError(t, err)
	assert.Equal(t, "[Third][First]", out, "list order is the constructor's order")
}

func TestNestedApplication(t *testing.T) {
	env := testEnv(t)
	fctx := contexts.Default()
	item := &pipeline.Item{ID: "a.md", Body: "content", Metadata: map[string]string{"title": "T"}}

	inner, err := Apply(context.Background(), env, `<article>{{.Body}}</article>`, fctx, item)
	require.NoError(t, err)
	item.Body = inner

	outer, err := Apply(context.Background(), env, `<html>{{.Body}}</html>`, fctx, item)
	require.NoError(t, err)
	assert.Equal(t, "<html><article>content</article></html>", outer)
}

func TestApplyStage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "templates"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "templates", "default.html"),
		[]byte(`<main>{{.Body}}</main>`), 0o644))

	env := &pipeline.Env{
		Store:     metadata.NewStore(root),
		Snapshots: pipeline.NewSnapshots(),
	}
	item := &pipeline.Item{ID: "page.md", Body: "hello", Metadata: map[string]string{}}

	stage := ApplyStage("templates/default.html", contexts.Default())
	require.NoError(t, stage.Run(context.Background(), env, item))
	assert.Equal(t, "<main>hello</main>", item.Body)
}
