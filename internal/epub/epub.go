// Package epub assembles the book's EPUB artifact from compiled chapter
// bodies, in the chapter order supplied by the caller.
package epub

import (
	"fmt"
	"os"
	"path/filepath"

	goepub "github.com/bmaupin/go-epub"

	berrors "github.com/bookforge/bookforge/internal/errors"
)

// Chapter is one spine entry: a rendered HTML body and its title.
type Chapter struct {
	Title string
	Body  string
}

// Builder accumulates book metadata and resources for one EPUB.
type Builder struct {
	Title       string
	Author      string
	Description string

	// FontPaths are font files embedded into the book.
	FontPaths []string

	// CSS is the book stylesheet applied to every chapter.
	CSS string
}

// Write assembles the EPUB at path from chapters in the given order.
func (b *Builder) Write(path string, chapters []Chapter) error {
	book := goepub.NewEpub(b.Title)
	if b.Author != "" {
		book.SetAuthor(b.Author)
	}
	if b.Description != "" {
		book.SetDescription(b.Description)
	}

	cssPath := ""
	if b.CSS != "" {
		tmp, err := writeTemp("book-*.css", b.CSS)
		if err != nil {
			return err
		}
		defer os.Remove(tmp)
		cssPath, err = book.AddCSS(tmp, "book.css")
		if err != nil {
			return berrors.WrapError(err, berrors.CategoryPipeline, "embed stylesheet")
		}
	}

	for _, font := range b.FontPaths {
		if _, err := book.AddFont(font, filepath.Base(font)); err != nil {
			return berrors.WrapError(err, berrors.CategoryPipeline,
				fmt.Sprintf("embed font %s", font))
		}
	}

	for i, chapter := range chapters {
		filename := fmt.Sprintf("chapter-%03d.xhtml", i+1)
		if _, err := book.AddSection(chapter.Body, chapter.Title, filename, cssPath); err != nil {
			return berrors.WrapError(err, berrors.CategoryPipeline,
				fmt.Sprintf("add chapter %q", chapter.Title))
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return berrors.WrapError(err, berrors.CategoryFileSystem, "create epub directory")
	}
	if err := book.Write(path); err != nil {
		return berrors.WrapError(err, berrors.CategoryFileSystem, "write epub")
	}
	return nil
}

func writeTemp(pattern, content string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", berrors.WrapError(err, berrors.CategoryFileSystem, "create temp file")
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", berrors.WrapError(err, berrors.CategoryFileSystem, "write temp file")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", berrors.WrapError(err, berrors.CategoryFileSystem, "close temp file")
	}
	return f.Name(), nil
}
