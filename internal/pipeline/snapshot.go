package pipeline

import (
	"fmt"
	"sync"

	berrors "github.com/bookforge/bookforge/internal/errors"
)

type snapshotKey struct {
	doc  string
	name string
}

// Snapshots is the write-once store for named body captures. Any document may
// read any other document's snapshot; a snapshot can never be overwritten.
type Snapshots struct {
	mu    sync.RWMutex
	saved map[snapshotKey]string
}

// NewSnapshots creates an empty snapshot store.
func NewSnapshots() *Snapshots {
	return &Snapshots{saved: make(map[snapshotKey]string)}
}

// Save captures body under (doc, name). Saving the same key twice is a
// programming error in the rule configuration.
func (s *Snapshots) Save(doc, name, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey{doc: doc, name: name}
	if _, exists := s.saved[key]; exists {
		return berrors.WrapError(berrors.ErrSnapshotExists, berrors.CategoryPipeline,
			fmt.Sprintf("snapshot %q of %s", name, doc)).WithDocument(doc)
	}
	s.saved[key] = body
	return nil
}

// Load returns the body saved under (doc, name). A missing snapshot means
// the reading chain ran before the producing chain, or the producing chain
// never saves under that name.
func (s *Snapshots) Load(doc, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.saved[snapshotKey{doc: doc, name: name}]
	if !ok {
		return "", berrors.WrapError(berrors.ErrSnapshotMissing, berrors.CategoryPipeline,
			fmt.Sprintf("snapshot %q of %s", name, doc)).WithDocument(doc)
	}
	return body, nil
}

// Has reports whether (doc, name) has been saved.
func (s *Snapshots) Has(doc, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.saved[snapshotKey{doc: doc, name: name}]
	return ok
}
