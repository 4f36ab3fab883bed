package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/pprof/profile"
)

// buildProfile converts folded stacks into a pprof profile with one sample
// per stack. Each segment, the process included, becomes a function.
func buildProfile(f Folded) (*profile.Profile, error) {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "samples", Unit: "count"},
		Period:     1,
	}

	locs := make(map[string]*profile.Location)
	location := func(name string) *profile.Location {
		if loc, ok := locs[name]; ok {
			return loc
		}
		fn := &profile.Function{
			ID:         uint64(len(p.Function) + 1),
			Name:       name,
			SystemName: name,
		}
		p.Function = append(p.Function, fn)
		loc := &profile.Location{
			ID:   uint64(len(p.Location) + 1),
			Line: []profile.Line{{Function: fn}},
		}
		p.Location = append(p.Location, loc)
		locs[name] = loc
		return loc
	}

	for _, key := range f.Keys() {
		segs := strings.Split(key, ";")
		s := &profile.Sample{Value: []int64{int64(f[key])}}
		// pprof locations are leaf first.
		for i := len(segs) - 1; i >= 0; i-- {
			s.Location = append(s.Location, location(segs[i]))
		}
		p.Sample = append(p.Sample, s)
	}

	if err := p.CheckValid(); err != nil {
		return nil, fmt.Errorf("pprof: %w", err)
	}
	return p, nil
}

// writePprof writes f as a gzip-compressed pprof profile.
func writePprof(w io.Writer, f Folded) error {
	p, err := buildProfile(f)
	if err != nil {
		return err
	}
	return p.Write(w)
}
