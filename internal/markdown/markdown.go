// Package markdown converts Markdown bodies to HTML and extracts structural
// information (headings, tables of contents) from the parsed AST.
package markdown

import (
	"bytes"
	"context"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/pipeline"
)

// Options controls reader behavior for a conversion.
type Options struct {
	// StripComments removes HTML comments from the source before parsing.
	StripComments bool
}

// Converter renders Markdown to HTML.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter builds a converter with the GFM extensions, footnotes,
// typographic replacements, and auto heading IDs.
func NewConverter() *Converter {
	return &Converter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

var htmlCommentPattern = regexp.MustCompile(`(?s)<!--.*?-->`)

// Convert renders a Markdown body (frontmatter already removed) to HTML.
func (c *Converter) Convert(body string, opts Options) (string, error) {
	if opts.StripComments {
		body = htmlCommentPattern.ReplaceAllString(body, "")
	}
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(body), &buf); err != nil {
		return "", berrors.WrapError(err, berrors.CategoryConvert, "markdown conversion")
	}
	return buf.String(), nil
}

// Stage wraps the converter as a pipeline stage.
func (c *Converter) Stage(opts Options) pipeline.Stage {
	return pipeline.StageFunc("convert-markdown", func(_ context.Context, _ *pipeline.Env, item *pipeline.Item) error {
		body, err := c.Convert(item.Body, opts)
		if err != nil {
			return err
		}
		item.Body = body
		return nil
	})
}
