// Package pipeline runs per-document compiler chains. A chain is an ordered
// list of stages over a rendered item (body plus metadata); each stage may
// fail independently, aborting the chain for that document only.
package pipeline

import (
	"context"

	"github.com/bookforge/bookforge/internal/metadata"
)

// Item is a document moving through its compiler chain: the current body and
// the read-only metadata record, plus the output route assigned by the
// matched rule ("" for ancillary resources that are never emitted).
type Item struct {
	ID       string
	Body     string
	Metadata map[string]string
	Route    string
}

// NewItem builds the initial item for a loaded document.
func NewItem(doc *metadata.Document, route string) *Item {
	return &Item{
		ID:       doc.ID,
		Body:     doc.Body,
		Metadata: doc.Meta,
		Route:    route,
	}
}

// Field returns the metadata value for key, if present.
func (it *Item) Field(key string) (string, bool) {
	value, ok := it.Metadata[key]
	return value, ok
}

// Env carries the shared build services a stage may use. Snapshots is the
// cross-document side channel; Ensure compiles another document's chain
// before its snapshots or route are read (a synchronous dependency fetch).
type Env struct {
	Store     *metadata.Store
	Snapshots *Snapshots

	// Ensure blocks until the document with the given identifier has been
	// compiled. Reading another document's snapshot without an Ensure first
	// is an ordering bug.
	Ensure func(ctx context.Context, id string) error

	// RouteOf reports the output route assigned to a document, if any.
	RouteOf func(id string) (string, bool)
}

// EnsureDocument is a nil-safe wrapper around Env.Ensure.
func (e *Env) EnsureDocument(ctx context.Context, id string) error {
	if e.Ensure == nil {
		return nil
	}
	return e.Ensure(ctx, id)
}
