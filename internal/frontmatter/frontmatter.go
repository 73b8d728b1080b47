// Package frontmatter splits `---` delimited YAML frontmatter from document
// bodies and parses it into the flat string map used by the metadata store.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("frontmatter opening delimiter without closing delimiter")

var delimiter = []byte("---")

// Split separates YAML frontmatter from the body.
//
// If the document does not start with a `---` line, had is false and body is
// the full input. Both LF and CRLF line endings are accepted.
func Split(content []byte) (meta []byte, body []byte, had bool, err error) {
	rest, ok := cutDelimiterLine(content)
	if !ok {
		return nil, content, false, nil
	}

	offset := len(content) - len(rest)
	for len(rest) > 0 {
		line, tail := nextLine(rest)
		if _, closed := cutDelimiterLine(line); closed {
			metaEnd := len(content) - len(rest)
			return content[offset:metaEnd], tail, true, nil
		}
		rest = tail
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// cutDelimiterLine reports whether the input begins with a `---` line and
// returns the remainder after that line.
func cutDelimiterLine(in []byte) ([]byte, bool) {
	if !bytes.HasPrefix(in, delimiter) {
		return in, false
	}
	rest := in[len(delimiter):]
	switch {
	case bytes.HasPrefix(rest, []byte("\r\n")):
		return rest[2:], true
	case bytes.HasPrefix(rest, []byte("\n")):
		return rest[1:], true
	case len(rest) == 0:
		return rest, true
	}
	return in, false
}

// nextLine returns the first line (including its terminator) and the rest.
func nextLine(in []byte) (line, rest []byte) {
	if i := bytes.IndexByte(in, '\n'); i >= 0 {
		return in[:i+1], in[i+1:]
	}
	return in, nil
}

// Parse decodes raw YAML frontmatter (without delimiters) into a flat
// string map. Scalar values are stringified; sequences of scalars are
// joined with ", "; nested mappings are rejected.
func Parse(meta []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(bytes.TrimSpace(meta)) == 0 {
		return out, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(meta, &raw); err != nil {
		return nil, err
	}
	for key, value := range raw {
		s, err := stringify(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		out[key] = s
	}
	return out, nil
}

func stringify(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprintf("%v", v), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, err := stringify(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}
