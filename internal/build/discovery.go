package build

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	berrors "github.com/bookforge/bookforge/internal/errors"
)

// Discover walks the source root and returns every regular file as a
// slash-separated path relative to the root, in sorted order. Hidden
// entries and the output directory are skipped.
func Discover(root string, skipDirs ...string) ([]string, error) {
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		if d == "" {
			continue
		}
		skip[filepath.Clean(d)] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || skip[filepath.Clean(rel)] {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, berrors.WrapError(err, berrors.CategoryFileSystem, "discover source files")
	}

	sort.Strings(paths)
	return paths, nil
}
