package main

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Data model
// ---------------------------------------------------------------------------

// trace is one sample: its header metadata plus the frames read so far.
type trace struct {
	process  string // "" if the header did not parse
	event    string
	hasEvent bool
	frames   []string // leaf → root, in read order
}

// stack returns the escaped frames in root → leaf order.
func (t *trace) stack() []string {
	out := make([]string, 0, len(t.frames))
	for i := len(t.frames) - 1; i >= 0; i-- {
		out = append(out, escapeFrame(t.frames[i]))
	}
	return out
}

func escapeFrame(frame string) string {
	frame = strings.TrimSpace(frame)
	frame = strings.ReplaceAll(frame, ";", ":")
	return strings.ReplaceAll(frame, "\n", "_")
}

// foldStack renders the folded key: the process (if any) followed by the
// root → leaf frames, joined by ";".
func foldStack(process string, frames []string) string {
	parts := make([]string, 0, len(frames)+1)
	if process != "" {
		parts = append(parts, escapeFrame(process))
	}
	for _, f := range frames {
		parts = append(parts, escapeFrame(f))
	}
	return strings.Join(parts, ";")
}

// ---------------------------------------------------------------------------
// Event filter
// ---------------------------------------------------------------------------

// eventFilter is the set of event labels eligible for aggregation. An
// unresolved filter takes the event of the first trace it sees and is frozen
// from then on.
type eventFilter struct {
	names     map[string]struct{}
	unlabeled bool // traces without an event label match
	resolved  bool
}

func newEventFilter(names []string) *eventFilter {
	f := &eventFilter{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		f.names[n] = struct{}{}
	}
	f.resolved = len(f.names) > 0
	return f
}

// resolve adopts t's event if the filter is still unresolved. It reports
// whether this call resolved it.
func (f *eventFilter) resolve(t *trace) bool {
	if f.resolved {
		return false
	}
	f.resolved = true
	if t.hasEvent {
		f.names[t.event] = struct{}{}
	} else {
		f.unlabeled = true
	}
	return true
}

func (f *eventFilter) accepts(t *trace) bool {
	if !t.hasEvent {
		return f.unlabeled
	}
	_, ok := f.names[t.event]
	return ok
}

func (f *eventFilter) String() string {
	names := make([]string, 0, len(f.names)+1)
	for n := range f.names {
		names = append(names, n)
	}
	if f.unlabeled {
		names = append(names, noEventLabel)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

const noEventLabel = "(none)"
