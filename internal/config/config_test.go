package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site:\n  title: Test Book\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Test Book", cfg.Site.Title)
	assert.Equal(t, 2, cfg.Site.TOCDepth)
	assert.Equal(t, "_site", cfg.Output.Directory)
	assert.Equal(t, "agda", cfg.Literate.Bin)
	assert.Equal(t, "sass", cfg.Styles.Bin)
	assert.Equal(t, "chapter", cfg.EPUB.ChapterKey)
	assert.Equal(t, ":8000", cfg.Serve.Addr)
	assert.Equal(t, filepath.Join("_site", "book.epub"), cfg.EPUB.Output)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("BOOK_TITLE", "Env Book")
	dir := t.TempDir()
	path := filepath.Join(dir, "bookforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site:\n  title: ${BOOK_TITLE}\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Env Book", cfg.Site.Title)
}

func TestLoadRejectsOutputEqualsSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookforge.yaml")
	yaml := "source:\n  root: book\noutput:\n  directory: book\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output directory must differ")
}

func TestInitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookforge.yaml")

	require.NoError(t, Init(path, false))
	err := Init(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, Init(path, true))
}

func TestInitProducesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookforge.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "My Book", cfg.Site.Title)
	assert.True(t, cfg.EPUB.Enabled)
	assert.Equal(t, []string{"standard-library"}, cfg.Literate.LibraryRoots)
}
