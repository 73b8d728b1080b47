package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyDocument   = "document"
	KeyRule       = "rule"
	KeyRoute      = "route"
	KeyStage      = "stage"
	KeyPattern    = "pattern"
	KeyPath       = "path"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Document(id string) slog.Attr     { return slog.String(KeyDocument, id) }
func Rule(name string) slog.Attr       { return slog.String(KeyRule, name) }
func Route(path string) slog.Attr      { return slog.String(KeyRoute, path) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func Pattern(p string) slog.Attr       { return slog.String(KeyPattern, p) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
