package pipeline

import (
	"context"
	"strings"

	"github.com/bookforge/bookforge/internal/htmlrewrite"
)

// RelativizeURLs returns a stage rewriting root-relative URLs in the item
// body to be relative to the item's output route. An item at a/b/c.html sees
// "/css/style.css" become "../../css/style.css". Items without a route are
// left unchanged.
func RelativizeURLs() Stage {
	return StageFunc("relativize-urls", func(_ context.Context, _ *Env, item *Item) error {
		if item.Route == "" {
			return nil
		}
		prefix := relativePrefix(item.Route)
		item.Body = htmlrewrite.RewriteURLs(item.Body, func(url string) (string, bool) {
			// Only root-relative URLs; "//host/..." is protocol-relative.
			if !strings.HasPrefix(url, "/") || strings.HasPrefix(url, "//") {
				return "", false
			}
			return prefix + strings.TrimPrefix(url, "/"), true
		})
		return nil
	})
}

// relativePrefix computes the "../" run climbing from route to the site root.
func relativePrefix(route string) string {
	depth := strings.Count(strings.TrimPrefix(route, "/"), "/")
	if depth == 0 {
		return "./"
	}
	return strings.Repeat("../", depth)
}
