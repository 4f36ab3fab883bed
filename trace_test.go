package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeFrame(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"main", "main"},
		{"  \tmain \n", "main"},
		{"a;b;c", "a:b:c"},
		{"x\ny", "x_y"},
		{" ; \n", ":"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeFrame(tt.input), "escapeFrame(%q)", tt.input)
	}
}

func TestFoldStack(t *testing.T) {
	tr := &trace{process: "app", frames: []string{"leaf", "mid\n", "root"}}
	assert.Equal(t, []string{"root", "mid", "leaf"}, tr.stack())
	assert.Equal(t, "app;root;mid;leaf", foldStack(tr.process, tr.stack()))
	assert.Equal(t, "root;mid;leaf", foldStack("", tr.stack()))
	assert.Equal(t, "", foldStack("", nil))
}

func TestEventFilterResolve(t *testing.T) {
	f := newEventFilter(nil)
	assert.False(t, f.accepts(&trace{}), "unresolved filter accepts nothing")

	assert.True(t, f.resolve(&trace{event: "cycles", hasEvent: true}))
	assert.False(t, f.resolve(&trace{event: "instructions", hasEvent: true}), "resolves once")

	assert.True(t, f.accepts(&trace{event: "cycles", hasEvent: true}))
	assert.False(t, f.accepts(&trace{event: "instructions", hasEvent: true}))
	assert.False(t, f.accepts(&trace{}))
	assert.Equal(t, "cycles", f.String())
}

func TestEventFilterExplicit(t *testing.T) {
	f := newEventFilter([]string{"b", "a"})
	assert.False(t, f.resolve(&trace{event: "c", hasEvent: true}))
	assert.True(t, f.accepts(&trace{event: "a", hasEvent: true}))
	assert.False(t, f.accepts(&trace{event: "c", hasEvent: true}))
	assert.False(t, f.accepts(&trace{}))
	assert.Equal(t, "a,b", f.String())
}

func TestEventFilterUnlabeled(t *testing.T) {
	f := newEventFilter(nil)
	require.True(t, f.resolve(&trace{}))
	assert.True(t, f.accepts(&trace{}))
	assert.False(t, f.accepts(&trace{event: "cycles", hasEvent: true}))
	assert.Equal(t, noEventLabel, f.String())
}

// ---------------------------------------------------------------------------
// TestWriteFolded
// ---------------------------------------------------------------------------

func TestWriteFolded(t *testing.T) {
	var buf bytes.Buffer
	f := Folded{"b;c": 1, "a;b": 3, "a": 2}
	require.NoError(t, writeFolded(&buf, f))
	assert.Equal(t, "a 2\na;b 3\nb;c 1\n", buf.String())
	assert.Equal(t, 6, f.Total())
}

func TestWriteFoldedEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFolded(&buf, Folded{}))
	assert.Empty(t, buf.String())
}
