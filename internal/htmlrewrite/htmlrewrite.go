// Package htmlrewrite rewrites URLs inside rendered HTML bodies. It walks
// the token stream and re-emits every token from its raw bytes, so input
// that contains no matching URL passes through byte-for-byte unchanged.
package htmlrewrite

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Attributes that carry URLs we are willing to rewrite.
var urlAttributes = map[string]bool{
	"href":   true,
	"src":    true,
	"poster": true,
	"data":   true,
}

// RewriteFunc maps a URL to its replacement. The second return value reports
// whether a rewrite applies; false leaves the URL untouched.
type RewriteFunc func(url string) (string, bool)

// RewriteURLs applies rewrite to every URL-bearing attribute in body.
func RewriteURLs(body string, rewrite RewriteFunc) string {
	z := html.NewTokenizer(strings.NewReader(body))
	var out strings.Builder
	out.Grow(len(body))

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				// Flush whatever raw bytes remain (truncated markup).
				out.Write(z.Raw())
				break
			}
			return body
		}

		raw := string(z.Raw())
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.WriteString(raw)
			continue
		}
		out.WriteString(rewriteTag(z, raw, rewrite))
	}

	return out.String()
}

// rewriteTag rewrites matching attribute values within one raw tag token.
func rewriteTag(z *html.Tokenizer, raw string, rewrite RewriteFunc) string {
	_, hasAttr := z.TagName()
	if !hasAttr {
		return raw
	}

	result := raw
	for {
		key, val, more := z.TagAttr()
		if urlAttributes[string(key)] {
			if replacement, ok := rewrite(string(val)); ok && replacement != string(val) {
				result = replaceAttrValue(result, string(val), replacement)
			}
		}
		if !more {
			break
		}
	}
	return result
}

// replaceAttrValue substitutes one attribute value inside the raw tag text,
// preferring quoted occurrences so the tag name and other attributes cannot
// be clobbered by a short value.
func replaceAttrValue(raw, old, replacement string) string {
	for _, quote := range []string{`"`, `'`} {
		quoted := quote + old + quote
		if strings.Contains(raw, quoted) {
			return strings.Replace(raw, quoted, quote+replacement+quote, 1)
		}
	}
	// Unquoted attribute values cannot contain spaces or '>', so a bare
	// occurrence bounded by the value itself is safe to substitute.
	return strings.Replace(raw, old, replacement, 1)
}
