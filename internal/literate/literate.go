// Package literate wraps the external literate proof-assistant compiler.
// Sources are compiled to HTML by invoking the configured binary with the
// library search paths from configuration plus any per-invocation include
// directories (course builds extend the include list).
package literate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/pipeline"
)

// Compiler invokes the external literate compiler.
type Compiler struct {
	// Bin is the compiler binary, e.g. "agda".
	Bin string

	// LibraryRoots are the library search paths passed to every invocation.
	LibraryRoots []string

	// IncludeDirs are additional include directories shared by all
	// invocations; extra dirs can be appended per call.
	IncludeDirs []string
}

// Args assembles the argument list for compiling source into htmlDir.
func (c *Compiler) Args(source, htmlDir string, extraIncludes ...string) []string {
	args := []string{"--html", "--html-dir=" + htmlDir, "--html-highlight=auto"}
	for _, root := range c.LibraryRoots {
		args = append(args, "--library="+root)
	}
	for _, dir := range append(append([]string{}, c.IncludeDirs...), extraIncludes...) {
		args = append(args, "--include-path="+dir)
	}
	return append(args, source)
}

// Compile runs the compiler over the source file and returns the generated
// HTML body for that module. Compiler diagnostics become a CompileError
// carrying the offending path.
func (c *Compiler) Compile(ctx context.Context, source string, extraIncludes ...string) (string, error) {
	htmlDir, err := os.MkdirTemp("", "literate-html-")
	if err != nil {
		return "", berrors.WrapError(err, berrors.CategoryFileSystem, "create html output dir")
	}
	defer os.RemoveAll(htmlDir)

	cmd := exec.CommandContext(ctx, c.Bin, c.Args(source, htmlDir, extraIncludes...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", berrors.Wrap(err, berrors.CategoryCompile, berrors.SeverityError,
			fmt.Sprintf("compile %s: %s", source, strings.TrimSpace(stderr.String())))
	}

	out := filepath.Join(htmlDir, OutputName(source))
	body, err := os.ReadFile(out)
	if err != nil {
		return "", berrors.WrapError(err, berrors.CategoryCompile,
			fmt.Sprintf("compiler produced no output for %s", source))
	}
	return string(body), nil
}

// OutputName maps a literate source file to the HTML file the compiler
// emits: the module base name with the literate extensions replaced.
func OutputName(source string) string {
	base := filepath.Base(source)
	for _, ext := range []string{".lagda.md", ".lagda", ".agda"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext) + ".html"
		}
	}
	return base + ".html"
}

// Stage returns a pipeline stage replacing the item body with the compiled
// HTML of its source file. The item's source lives under root.
func (c *Compiler) Stage(root string, extraIncludes ...string) pipeline.Stage {
	return pipeline.StageFunc("compile-literate", func(ctx context.Context, _ *pipeline.Env, item *pipeline.Item) error {
		source := filepath.Join(root, filepath.FromSlash(item.ID))
		body, err := c.Compile(ctx, source, extraIncludes...)
		if err != nil {
			return err
		}
		item.Body = body
		return nil
	})
}
