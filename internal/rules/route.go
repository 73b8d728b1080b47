package rules

import (
	"path"
	"strings"
)

// Route computes the output path for a document identifier. ok is false for
// ancillary resources (templates, metadata-only files) that exist only to be
// loaded by other rules and are never emitted.
type Route func(id string) (route string, ok bool)

// IdentityRoute emits the document at its source path.
func IdentityRoute() Route {
	return func(id string) (string, bool) { return id, true }
}

// NoRoute marks a rule's documents as load-only.
func NoRoute() Route {
	return func(string) (string, bool) { return "", false }
}

// ConstRoute emits every matched document at one fixed path.
func ConstRoute(fixed string) Route {
	return func(string) (string, bool) { return fixed, true }
}

// SetExtension swaps the document's extension (everything after the first
// dot of the base name, so "Lists.lagda.md" becomes "Lists.html").
func SetExtension(ext string) Route {
	ext = strings.TrimPrefix(ext, ".")
	return func(id string) (string, bool) {
		dir, base := path.Split(id)
		if i := strings.IndexByte(base, '.'); i >= 0 {
			base = base[:i]
		}
		return dir + base + "." + ext, true
	}
}

// StripPrefix removes a leading path prefix before applying next.
func StripPrefix(prefix string, next Route) Route {
	return func(id string) (string, bool) {
		return next(strings.TrimPrefix(id, prefix))
	}
}

// PrependDir places the route computed by next under dir.
func PrependDir(dir string, next Route) Route {
	return func(id string) (string, bool) {
		route, ok := next(id)
		if !ok {
			return "", false
		}
		return path.Join(dir, route), true
	}
}

// LowerCase lowercases the route computed by next.
func LowerCase(next Route) Route {
	return func(id string) (string, bool) {
		route, ok := next(id)
		if !ok {
			return "", false
		}
		return strings.ToLower(route), true
	}
}
