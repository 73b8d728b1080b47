package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGet(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	rec := Record{
		DocumentID:  "posts/hello.md",
		Fingerprint: Fingerprint("hello"),
		Route:       "posts/hello.html",
	}
	require.NoError(t, store.Put(ctx, rec))

	got, ok, err := store.Get(ctx, "posts/hello.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.DocumentID, got.DocumentID)
	assert.Equal(t, rec.Fingerprint, got.Fingerprint)
	assert.Equal(t, rec.Route, got.Route)
	assert.False(t, got.BuiltAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get(context.Background(), "absent.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutReplacesExisting(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, Record{DocumentID: "a.md", Fingerprint: "f1", Route: "a.html"}))
	require.NoError(t, store.Put(ctx, Record{DocumentID: "a.md", Fingerprint: "f2", Route: "a.html"}))

	got, ok, err := store.Get(ctx, "a.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "f2", got.Fingerprint)
}

func TestUnchanged(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	fp := Fingerprint("body")
	require.NoError(t, store.Put(ctx, Record{DocumentID: "a.md", Fingerprint: fp, Route: "a.html"}))

	same, err := store.Unchanged(ctx, "a.md", fp)
	require.NoError(t, err)
	assert.True(t, same)

	same, err = store.Unchanged(ctx, "a.md", Fingerprint("other"))
	require.NoError(t, err)
	assert.False(t, same)

	same, err = store.Unchanged(ctx, "never-built.md", fp)
	require.NoError(t, err)
	assert.False(t, same)
}

func TestDelete(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, Record{DocumentID: "a.md", Fingerprint: "f", Route: "a.html"}))
	require.NoError(t, store.Delete(ctx, "a.md"))

	_, ok, err := store.Get(ctx, "a.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFingerprintDeterministic(t *testing.T) {
	assert.Equal(t, Fingerprint("x"), Fingerprint("x"))
	assert.NotEqual(t, Fingerprint("x"), Fingerprint("y"))
}

func TestFingerprintDocumentCoversMetadata(t *testing.T) {
	body := "body text"
	meta := map[string]string{"title": "One", "chapter": "3"}

	assert.Equal(t,
		FingerprintDocument(meta, body),
		FingerprintDocument(map[string]string{"chapter": "3", "title": "One"}, body),
		"map iteration order must not affect the hash")

	assert.NotEqual(t,
		FingerprintDocument(meta, body),
		FingerprintDocument(map[string]string{"title": "Two", "chapter": "3"}, body),
		"a metadata-only edit must change the fingerprint")

	assert.NotEqual(t,
		FingerprintDocument(meta, body),
		FingerprintDocument(meta, "other body"))

	assert.NotEqual(t,
		FingerprintDocument(map[string]string{"a": "b"}, ""),
		FingerprintDocument(nil, "a\x00b\x00"),
		"metadata and body bytes must not collide")
}
