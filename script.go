package main

import (
	"fmt"
	"log/slog"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// A transform script defines
//
//	def transform(process, event, frames):
//	    ...
//
// process and event are strings or None, frames is the root → leaf list of
// escaped frames. It returns the frames to count, or None to drop the trace.
const transformFunc = "transform"

type scriptTransform struct {
	path   string
	thread *starlark.Thread
	fn     starlark.Callable
}

func loadScript(path string, log *slog.Logger) (*scriptTransform, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return compileScript(path, src, log)
}

func compileScript(path string, src []byte, log *slog.Logger) (*scriptTransform, error) {
	thread := &starlark.Thread{
		Name: "perf-fold",
		Print: func(_ *starlark.Thread, msg string) {
			log.Info(msg, "script", path)
		},
	}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, path, src, nil)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	fn, ok := globals[transformFunc].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("script %s: no %s function defined", path, transformFunc)
	}
	return &scriptTransform{path: path, thread: thread, fn: fn}, nil
}

func optString(s string, ok bool) starlark.Value {
	if !ok {
		return starlark.None
	}
	return starlark.String(s)
}

func (s *scriptTransform) apply(t *trace, frames []string) ([]string, bool, error) {
	elems := make([]starlark.Value, len(frames))
	for i, f := range frames {
		elems[i] = starlark.String(f)
	}
	args := starlark.Tuple{
		optString(t.process, t.process != ""),
		optString(t.event, t.hasEvent),
		starlark.NewList(elems),
	}

	v, err := starlark.Call(s.thread, s.fn, args, nil)
	if err != nil {
		return nil, false, fmt.Errorf("script %s: %w", s.path, err)
	}
	if v == starlark.None {
		return nil, false, nil
	}

	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, false, fmt.Errorf("script %s: %s returned %s, want list or None", s.path, transformFunc, v.Type())
	}
	iter := iterable.Iterate()
	defer iter.Done()

	out := make([]string, 0, len(frames))
	var x starlark.Value
	for iter.Next(&x) {
		str, ok := starlark.AsString(x)
		if !ok {
			return nil, false, fmt.Errorf("script %s: frame %s is %s, want string", s.path, x, x.Type())
		}
		out = append(out, str)
	}
	return out, true, nil
}
