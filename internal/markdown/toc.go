package markdown

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	berrors "github.com/bookforge/bookforge/internal/errors"
)

// Heading is one entry of a document outline.
type Heading struct {
	Level    int
	ID       string
	Text     string
	Children []*Heading
}

// Outline parses a Markdown body and returns its headings, nested by level,
// ignoring headings deeper than maxDepth.
func (c *Converter) Outline(body string, maxDepth int) ([]*Heading, error) {
	source := []byte(body)
	root := c.md.Parser().Parse(text.NewReader(source))

	var flat []*Heading
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level > maxDepth {
			return ast.WalkContinue, nil
		}
		title := nodeText(heading, source)
		flat = append(flat, &Heading{
			Level: heading.Level,
			ID:    headingID(heading, title),
			Text:  title,
		})
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, berrors.WrapError(err, berrors.CategoryConvert, "walk outline")
	}
	return nest(flat), nil
}

// TOC renders the outline as a nested HTML list.
func (c *Converter) TOC(body string, maxDepth int) (string, error) {
	outline, err := c.Outline(body, maxDepth)
	if err != nil {
		return "", err
	}
	if len(outline) == 0 {
		return "", nil
	}
	var sb strings.Builder
	renderList(&sb, outline)
	return sb.String(), nil
}

func renderList(sb *strings.Builder, headings []*Heading) {
	sb.WriteString("<ul>")
	for _, h := range headings {
		fmt.Fprintf(sb, `<li><a href="#%s">%s</a>`, h.ID, h.Text)
		if len(h.Children) > 0 {
			renderList(sb, h.Children)
		}
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul>")
}

// nest converts the flat heading sequence into a tree using heading levels.
func nest(flat []*Heading) []*Heading {
	var roots []*Heading
	var stack []*Heading
	for _, h := range flat {
		for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, h)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, h)
		}
		stack = append(stack, h)
	}
	return roots
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func headingID(heading *ast.Heading, title string) string {
	if id, ok := heading.AttributeString("id"); ok {
		if b, ok := id.([]byte); ok {
			return string(b)
		}
		if s, ok := id.(string); ok {
			return s
		}
	}
	return Slugify(title)
}

// Slugify derives a URL anchor from a heading title: diacritics stripped,
// lowercased, runs of non-alphanumerics collapsed to single hyphens.
func Slugify(title string) string {
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, title)
	if err != nil {
		stripped = title
	}

	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(stripped) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			sb.WriteRune('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
