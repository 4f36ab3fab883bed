package main

import (
	"bytes"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProfile(t *testing.T) {
	p, err := buildProfile(Folded{"app;main;leaf": 3, "app;main": 2})
	require.NoError(t, err)

	require.Len(t, p.Sample, 2)
	assert.Len(t, p.Function, 3, "functions are shared between samples")
	assert.Len(t, p.Location, 3)

	// Samples follow sorted key order; locations are leaf first.
	assert.Equal(t, []int64{2}, p.Sample[0].Value)
	assert.Equal(t, []int64{3}, p.Sample[1].Value)
	names := func(s *profile.Sample) []string {
		var out []string
		for _, loc := range s.Location {
			out = append(out, loc.Line[0].Function.Name)
		}
		return out
	}
	assert.Equal(t, []string{"main", "app"}, names(p.Sample[0]))
	assert.Equal(t, []string{"leaf", "main", "app"}, names(p.Sample[1]))
}

func TestWritePprofParses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePprof(&buf, Folded{"a;b": 4, "a;c": 1}))

	p, err := profile.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, p.SampleType, 1)
	assert.Equal(t, "samples", p.SampleType[0].Type)

	var total int64
	for _, s := range p.Sample {
		total += s.Value[0]
	}
	assert.Equal(t, int64(5), total)
}

func TestWritePprofEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePprof(&buf, Folded{}))
	p, err := profile.Parse(&buf)
	require.NoError(t, err)
	assert.Empty(t, p.Sample)
}
