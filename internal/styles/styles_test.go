package styles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/bookforge/bookforge/internal/errors"
)

func TestArgs(t *testing.T) {
	c := &Compiler{Bin: "sass", IncludePaths: []string{"css", "vendor/css"}}
	assert.Equal(t, []string{
		"--stdin",
		"--style=compressed",
		"--no-source-map",
		"--load-path=css",
		"--load-path=vendor/css",
	}, c.Args())
}

func TestConcatPreservesLoadOrder(t *testing.T) {
	got := Concat([]string{"a{x:1}", "b{y:2}\n", "c{z:3}"})
	assert.Equal(t, "a{x:1}\nb{y:2}\nc{z:3}\n", got)
}

func TestConcatSkipsEmpty(t *testing.T) {
	assert.Equal(t, "a{x:1}\n", Concat([]string{"", "a{x:1}", "\n"}))
	assert.Equal(t, "", Concat(nil))
}

func TestCompileMissingBinary(t *testing.T) {
	c := &Compiler{Bin: "definitely-not-a-real-sass-binary"}
	_, err := c.Compile(context.Background(), "body { color: red; }")
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryCompile))
}
