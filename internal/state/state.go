// Package state tracks build results between runs so watch mode can
// skip documents whose inputs have not changed.
package state

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record describes the last successful build of a single document.
type Record struct {
	DocumentID  string
	Fingerprint string
	Route       string
	BuiltAt     time.Time
}

// Store persists per-document build records in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the build-state database at dbPath.
// Use ":memory:" for an in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		route TEXT NOT NULL,
		built_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the record for a document, or false if none exists.
func (s *Store) Get(ctx context.Context, documentID string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec Record
	var builtAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, fingerprint, route, built_at FROM documents WHERE id = ?",
		documentID,
	).Scan(&rec.DocumentID, &rec.Fingerprint, &rec.Route, &builtAt)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query document record: %w", err)
	}
	rec.BuiltAt = time.Unix(builtAt, 0)
	return rec, true, nil
}

// Put stores or replaces the record for a document.
func (s *Store) Put(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.BuiltAt.IsZero() {
		rec.BuiltAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (id, fingerprint, route, built_at) VALUES (?, ?, ?, ?) "+
			"ON CONFLICT(id) DO UPDATE SET fingerprint = excluded.fingerprint, route = excluded.route, built_at = excluded.built_at",
		rec.DocumentID, rec.Fingerprint, rec.Route, rec.BuiltAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert document record: %w", err)
	}
	return nil
}

// Delete removes the record for a document.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID)
	if err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}
	return nil
}

// Unchanged reports whether the stored fingerprint for a document
// matches the given one. A document with no record is always changed.
func (s *Store) Unchanged(ctx context.Context, documentID, fingerprint string) (bool, error) {
	rec, ok, err := s.Get(ctx, documentID)
	if err != nil {
		return false, err
	}
	return ok && rec.Fingerprint == fingerprint, nil
}

// Fingerprint computes a content hash for a document body.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// FingerprintDocument hashes a document's metadata together with its body,
// so a frontmatter-only edit changes the fingerprint. Keys are hashed in
// sorted order for determinism.
func FingerprintDocument(meta map[string]string, body string) string {
	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, key := range keys {
		fmt.Fprintf(h, "%s\x00%s\x00", key, meta[key])
	}
	h.Write([]byte{0xff})
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}
