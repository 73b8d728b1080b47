package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertBasics(t *testing.T) {
	c := NewConverter()
	out, err := c.Convert("# Heading\n\nSome *text*.\n", Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<em>text</em>")
}

func TestConvertGFMTable(t *testing.T) {
	c := NewConverter()
	out, err := c.Convert("| a | b |\n|---|---|\n| 1 | 2 |\n", Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
}

func TestConvertAutoHeadingIDs(t *testing.T) {
	c := NewConverter()
	out, err := c.Convert("## Getting Started\n", Options{})
	require.NoError(t, err)
	assert.Contains(t, out, `id="getting-started"`)
}

func TestStripComments(t *testing.T) {
	c := NewConverter()
	src := "before\n\n<!-- editorial\nnote -->\nafter\n"

	kept, err := c.Convert(src, Options{})
	require.NoError(t, err)
	assert.Contains(t, kept, "editorial")

	stripped, err := c.Convert(src, Options{StripComments: true})
	require.NoError(t, err)
	assert.NotContains(t, stripped, "editorial")
	assert.Contains(t, stripped, "after")
}

func TestOutlineDepthLimit(t *testing.T) {
	c := NewConverter()
	src := "# One\n\n## Two\n\n### Three\n\n## Two B\n"

	outline, err := c.Outline(src, 2)
	require.NoError(t, err)
	require.Len(t, outline, 1)
	assert.Equal(t, "One", outline[0].Text)
	require.Len(t, outline[0].Children, 2)
	assert.Equal(t, "Two", outline[0].Children[0].Text)
	assert.Empty(t, outline[0].Children[0].Children, "level three exceeds the depth limit")
}

func TestTOCRendering(t *testing.T) {
	c := NewConverter()
	toc, err := c.TOC("# Lists\n\n## Map\n\n## Fold\n", 3)
	require.NoError(t, err)
	assert.Equal(t, `<ul><li><a href="#lists">Lists</a><ul><li><a href="#map">Map</a></li><li><a href="#fold">Fold</a></li></ul></li></ul>`, toc)
}

func TestTOCEmptyDocument(t *testing.T) {
	c := NewConverter()
	toc, err := c.TOC("no headings here\n", 3)
	require.NoError(t, err)
	assert.Empty(t, toc)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "getting-started", Slugify("Getting Started"))
	assert.Equal(t, "equalite-decidable", Slugify("Égalité décidable"))
	assert.Equal(t, "a-b-c", Slugify("A -- b // c!"))
}
