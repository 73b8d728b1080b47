// Package errors provides the structured error type (BuildError) used for
// category-based classification of per-document build failures, plus the
// sentinel errors shared by the field resolvers and the snapshot store.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a build error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig   ErrorCategory = "config"
	CategoryMetadata ErrorCategory = "metadata"
	CategoryRules    ErrorCategory = "rules"

	// Content processing errors
	CategoryConvert  ErrorCategory = "convert"
	CategoryCompile  ErrorCategory = "compile"
	CategoryTemplate ErrorCategory = "template"
	CategoryPipeline ErrorCategory = "pipeline"

	// Runtime and infrastructure errors
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryState      ErrorCategory = "state"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the whole build
	SeverityError   ErrorSeverity = "error"   // Aborts the current document only
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded output
)

// Sentinel errors for resolver and snapshot failures. Callers match these
// with errors.Is; the surrounding BuildError carries the document context.
var (
	// ErrMissingField indicates a context could not resolve a requested key.
	ErrMissingField = errors.New("missing field")

	// ErrNoTitleSubtitleDistinction indicates a title has no colon separator
	// and therefore cannot be split into a running title and a subtitle.
	ErrNoTitleSubtitleDistinction = errors.New("title has no subtitle separator")

	// ErrSnapshotMissing indicates a named snapshot was read before (or
	// without) being saved. This is a configuration error, not user input.
	ErrSnapshotMissing = errors.New("snapshot not saved")

	// ErrSnapshotExists indicates an attempt to overwrite a saved snapshot.
	// Snapshots are write-once.
	ErrSnapshotExists = errors.New("snapshot already saved")
)

// ContextFields carries structured context for BuildError
type ContextFields map[string]any

// BuildError is a structured error with category, severity, and context
type BuildError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for errors.Is / errors.As chains
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BuildError) WithContext(key string, value any) *BuildError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithDocument records the originating document identifier on the error
func (e *BuildError) WithDocument(id string) *BuildError {
	return e.WithContext("document", id)
}

// New creates a new BuildError
func New(category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BuildError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapError wraps an existing error at the default document-aborting severity
func WrapError(err error, category ErrorCategory, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: SeverityError,
		Message:  message,
		Cause:    err,
	}
}

// MissingField creates a document-aborting error for an unresolvable key
func MissingField(key string) *BuildError {
	return &BuildError{
		Category: CategoryMetadata,
		Severity: SeverityError,
		Message:  fmt.Sprintf("no resolver produced a value for %q", key),
		Cause:    ErrMissingField,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or CategoryInternal if
// the error is not a BuildError
func GetCategory(err error) ErrorCategory {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Category
	}
	return CategoryInternal
}

// IsFatal reports whether an error should stop the whole build rather than
// only the current document's chain
func IsFatal(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Severity == SeverityFatal
	}
	return false
}
