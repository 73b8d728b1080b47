// Package styles wraps the external stylesheet compiler and assembles the
// site's concatenated stylesheet from the matched stylesheet documents.
package styles

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/pipeline"
)

// Compiler invokes the external SCSS compiler over stdin/stdout.
type Compiler struct {
	// Bin is the compiler binary, e.g. "sass".
	Bin string

	// IncludePaths are passed with --load-path for @use/@import resolution.
	IncludePaths []string
}

// Args assembles the compiler argument list.
func (c *Compiler) Args() []string {
	args := []string{"--stdin", "--style=compressed", "--no-source-map"}
	for _, p := range c.IncludePaths {
		args = append(args, "--load-path="+p)
	}
	return args
}

// Compile compiles one SCSS body to CSS.
func (c *Compiler) Compile(ctx context.Context, scss string) (string, error) {
	cmd := exec.CommandContext(ctx, c.Bin, c.Args()...)
	cmd.Stdin = strings.NewReader(scss)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", berrors.Wrap(err, berrors.CategoryCompile, berrors.SeverityError,
			fmt.Sprintf("scss compile: %s", strings.TrimSpace(stderr.String())))
	}
	return stdout.String(), nil
}

// Stage wraps the compiler as a pipeline stage.
func (c *Compiler) Stage() pipeline.Stage {
	return pipeline.StageFunc("compile-scss", func(ctx context.Context, _ *pipeline.Env, item *pipeline.Item) error {
		css, err := c.Compile(ctx, item.Body)
		if err != nil {
			return err
		}
		item.Body = css
		return nil
	})
}

// Concat assembles the final stylesheet from compiled bodies in load order.
func Concat(bodies []string) string {
	var sb strings.Builder
	for _, body := range bodies {
		body = strings.TrimRight(body, "\n")
		if body == "" {
			continue
		}
		sb.WriteString(body)
		sb.WriteByte('\n')
	}
	return sb.String()
}
