// Package metadata implements the per-document metadata store. Documents are
// loaded lazily on first access and cached for the remainder of the build;
// metadata comes from YAML frontmatter merged with an optional sibling
// `<name>.metadata` file (frontmatter wins on conflict).
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/frontmatter"
)

// Document is a loaded source artifact: its identifier (path relative to the
// source root), its metadata record, and its raw body with frontmatter
// stripped. Both are immutable once loaded.
type Document struct {
	ID   string
	Meta map[string]string
	Body string
}

// Store loads and caches documents under a single source root.
type Store struct {
	root string

	mu    sync.Mutex
	cache map[string]*Document
}

// NewStore creates a store rooted at the given source directory.
func NewStore(root string) *Store {
	return &Store{
		root:  root,
		cache: make(map[string]*Document),
	}
}

// Root returns the source root the store reads from.
func (s *Store) Root() string { return s.root }

// Load returns the document with the given identifier, reading it from disk
// on first access. Subsequent calls return the cached document; callers must
// treat the result as read-only.
func (s *Store) Load(id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.cache[id]; ok {
		return doc, nil
	}

	doc, err := s.read(id)
	if err != nil {
		return nil, err
	}
	s.cache[id] = doc
	return doc, nil
}

// GetField returns the metadata value for key on the given document, or a
// MissingField error when the key is absent. Callers decide whether absence
// is fatal for their chain.
func (s *Store) GetField(id, key string) (string, error) {
	doc, err := s.Load(id)
	if err != nil {
		return "", err
	}
	value, ok := doc.Meta[key]
	if !ok {
		return "", berrors.MissingField(key).WithDocument(id)
	}
	return value, nil
}

func (s *Store) read(id string) (*Document, error) {
	path := filepath.Join(s.root, filepath.FromSlash(id))
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, berrors.WrapError(err, berrors.CategoryFileSystem,
			fmt.Sprintf("read document %s", id)).WithDocument(id)
	}

	// A standalone `.metadata` document is pure metadata with no body.
	if filepath.Ext(id) == ".metadata" {
		fields, err := frontmatter.Parse(content)
		if err != nil {
			return nil, berrors.WrapError(err, berrors.CategoryMetadata,
				fmt.Sprintf("parse metadata document %s", id)).WithDocument(id)
		}
		return &Document{ID: id, Meta: fields, Body: ""}, nil
	}

	meta, body, _, err := frontmatter.Split(content)
	if err != nil {
		return nil, berrors.WrapError(err, berrors.CategoryMetadata,
			fmt.Sprintf("split frontmatter of %s", id)).WithDocument(id)
	}

	fields, err := frontmatter.Parse(meta)
	if err != nil {
		return nil, berrors.WrapError(err, berrors.CategoryMetadata,
			fmt.Sprintf("parse frontmatter of %s", id)).WithDocument(id)
	}

	// Sibling `<name>.metadata` files supply fields for documents whose format
	// has no frontmatter of its own (stylesheets, binaries). Frontmatter wins
	// on conflict.
	sibling, err := s.readSibling(id)
	if err != nil {
		return nil, err
	}
	for key, value := range sibling {
		if _, exists := fields[key]; !exists {
			fields[key] = value
		}
	}

	return &Document{ID: id, Meta: fields, Body: string(body)}, nil
}

func (s *Store) readSibling(id string) (map[string]string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(id)+".metadata")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, berrors.WrapError(err, berrors.CategoryFileSystem,
			fmt.Sprintf("read metadata file for %s", id)).WithDocument(id)
	}
	fields, err := frontmatter.Parse(content)
	if err != nil {
		return nil, berrors.WrapError(err, berrors.CategoryMetadata,
			fmt.Sprintf("parse metadata file for %s", id)).WithDocument(id)
	}
	return fields, nil
}
