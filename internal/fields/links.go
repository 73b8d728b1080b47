package fields

import (
	"strings"

	"github.com/bookforge/bookforge/internal/htmlrewrite"
	"github.com/bookforge/bookforge/internal/pipeline"
)

// RootMapping maps a local library path prefix to its public base URL.
// Prefixes are tried in declaration order, so list more specific roots first.
type RootMapping struct {
	LocalPrefix string
	PublicBase  string
}

// LinkRewriter rewrites URLs in a rendered body: local library paths become
// their public URLs, and local source paths become their public routes. URLs
// matching neither pattern are left byte-for-byte unchanged, so applying the
// rewriter twice is the same as applying it once.
type LinkRewriter struct {
	Libraries []RootMapping

	// SourceRoute maps a local source path (fragment removed) to its public
	// route. A false return leaves the URL alone.
	SourceRoute func(path string) (string, bool)
}

// Rewrite applies the rewriter to one rendered body.
func (r *LinkRewriter) Rewrite(body string) string {
	return htmlrewrite.RewriteURLs(body, r.rewriteURL)
}

// Stage wraps the rewriter as a pipeline stage.
func (r *LinkRewriter) Stage() pipeline.Stage {
	return pipeline.Filter("rewrite-links", func(body string) (string, error) {
		return r.Rewrite(body), nil
	})
}

func (r *LinkRewriter) rewriteURL(url string) (string, bool) {
	if isExternal(url) {
		return "", false
	}
	path, fragment := splitFragment(url)

	for _, lib := range r.Libraries {
		if strings.HasPrefix(path, lib.LocalPrefix) {
			return lib.PublicBase + strings.TrimPrefix(path, lib.LocalPrefix) + fragment, true
		}
	}

	if r.SourceRoute != nil {
		if route, ok := r.SourceRoute(path); ok {
			return route + fragment, true
		}
	}
	return "", false
}

func splitFragment(url string) (path, fragment string) {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		return url[:i], url[i:]
	}
	return url, ""
}

// isExternal reports whether a URL carries a scheme or is protocol-relative
// and therefore must never be rewritten.
func isExternal(url string) bool {
	if strings.HasPrefix(url, "//") {
		return true
	}
	for i := 0; i < len(url); i++ {
		c := url[i]
		switch {
		case c == ':':
			return true
		case c == '/' || c == '#' || c == '?':
			return false
		}
	}
	return false
}
