package main

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustScript(t *testing.T, src string) *scriptTransform {
	t.Helper()
	s, err := compileScript("test.star", []byte(src), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func foldWithScript(t *testing.T, src, input string) (Folded, error) {
	t.Helper()
	a := newAggregator(Options{}, nil)
	a.transform = mustScript(t, src)
	if err := a.consume(strings.NewReader(input)); err != nil {
		return nil, err
	}
	return a.result()
}

func TestScriptRewritesFrames(t *testing.T) {
	src := `
def transform(process, event, frames):
    if "drop" in frames:
        return None
    return [f.upper() for f in frames if f != "skip"]
`
	got, err := foldWithScript(t, src, lines(
		cyclesHeader, "  1 skip (m)\n", "  2 main (m)\n", "\n",
		cyclesHeader, "  1 drop (m)\n", "  2 main (m)\n", "\n",
	))
	require.NoError(t, err)
	assert.Equal(t, Folded{"app;MAIN": 1}, got)
}

func TestScriptSeesHeaderFields(t *testing.T) {
	src := `
def transform(process, event, frames):
    return [str(process), str(event)] + frames
`
	got, err := foldWithScript(t, src, lines(
		"garbage\n", "  1 f (m)\n", "\n",
	))
	require.NoError(t, err)
	assert.Equal(t, Folded{"None;None;f": 1}, got)

	got, err = foldWithScript(t, src, lines(cyclesHeader, "  1 f (m)\n", "\n"))
	require.NoError(t, err)
	assert.Equal(t, Folded{"app;app;cycles;f": 1}, got)
}

func TestScriptOutputIsEscaped(t *testing.T) {
	src := `
def transform(process, event, frames):
    return frames + ["a;b"]
`
	got, err := foldWithScript(t, src, lines(cyclesHeader, "  1 f (m)\n", "\n"))
	require.NoError(t, err)
	assert.Equal(t, Folded{"app;f;a:b": 1}, got)
}

func TestScriptBadReturn(t *testing.T) {
	src := `
def transform(process, event, frames):
    return 42
`
	_, err := foldWithScript(t, src, lines(cyclesHeader, "  1 f (m)\n", "\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want list or None")
}

func TestScriptBadFrame(t *testing.T) {
	src := `
def transform(process, event, frames):
    return [1]
`
	_, err := foldWithScript(t, src, lines(cyclesHeader, "  1 f (m)\n", "\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want string")
}

func TestScriptMissingTransform(t *testing.T) {
	_, err := compileScript("test.star", []byte("x = 1\n"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transform function")
}

func TestScriptSyntaxError(t *testing.T) {
	_, err := compileScript("test.star", []byte("def transform(:\n"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
