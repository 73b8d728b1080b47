package literate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/bookforge/bookforge/internal/errors"
)

func TestArgs(t *testing.T) {
	c := &Compiler{
		Bin:          "agda",
		LibraryRoots: []string{"/lib/standard-library.agda-lib"},
		IncludeDirs:  []string{"src"},
	}
	args := c.Args("src/Lists.lagda.md", "/tmp/html", "courses/tspl")
	assert.Equal(t, []string{
		"--html",
		"--html-dir=/tmp/html",
		"--html-highlight=auto",
		"--library=/lib/standard-library.agda-lib",
		"--include-path=src",
		"--include-path=courses/tspl",
		"src/Lists.lagda.md",
	}, args)
}

func TestArgsDoesNotMutateIncludeDirs(t *testing.T) {
	c := &Compiler{Bin: "agda", IncludeDirs: []string{"src"}}
	_ = c.Args("a.lagda.md", "/tmp/h", "extra1")
	args := c.Args("a.lagda.md", "/tmp/h", "extra2")
	assert.NotContains(t, args, "--include-path=extra1",
		"per-invocation includes must not leak into later invocations")
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "Lists.html", OutputName("src/part1/Lists.lagda.md"))
	assert.Equal(t, "Naturals.html", OutputName("Naturals.lagda"))
	assert.Equal(t, "Induction.html", OutputName("courses/Induction.agda"))
}

func TestCompileMissingBinary(t *testing.T) {
	c := &Compiler{Bin: "definitely-not-a-real-compiler-binary"}
	_, err := c.Compile(context.Background(), "src/Lists.lagda.md")
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryCompile))
}
