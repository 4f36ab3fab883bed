package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// Parses `perf script --inline` output:
//
//	process_name 11562 2585167.735943:          5 cycles:uppp:
//	        ffffffff8168e0ec irq_return ([kernel.kallsyms])
//	                   8010b malloc (/usr/lib64/libc-2.17.so)
//	                   30aec std::vector<...>::_M_initialize_dispatch<...> (/path/to/binary)
//	                         std::string::_S_construct<...>
//	                         std::vector<...>::_M_initialize_dispatch<...>
//	                   31117 some_function (/path/to/binary)
//
// Lines without an address and module are inlined frames listed under their
// real stack frame. A blank line ends the trace.

var (
	processRe    = regexp.MustCompile(`^(\S.*)\s+(\d+)(?:/(\d+))?\s+.*(\d+).(\d+):`)
	eventRe      = regexp.MustCompile(`^.*\s(\S+):\s*$`)
	stackFrameRe = regexp.MustCompile(`^\s*[0-9a-fA-F]+\s+(.+)\s+\(.*\)$`)
)

// Options controls how traces are named, filtered and folded.
type Options struct {
	EventFilter []string // empty: use the first trace's event
	IncludePID  bool
	IncludeTID  bool // implies IncludePID

	// InlineReplacesHeader drops a pending frame header when inlined frames
	// follow it instead of keeping both. perf repeats the header's function
	// as the last inlined line, so this avoids a duplicate frame.
	InlineReplacesHeader bool
}

// stackTransform rewrites the root → leaf frames of an accepted trace. keep
// is false when the trace should not be counted.
type stackTransform interface {
	apply(t *trace, frames []string) (out []string, keep bool, err error)
}

type aggStats struct {
	traces   int            // trace-start headers seen
	counted  int            // traces added to the result
	filtered int            // traces rejected by the event filter
	dropped  int            // traces rejected by the transform or empty
	events   map[string]int // trace count per header event label
}

// aggregator folds perf script traces into counted stacks. It is a
// single-pass state machine and is not safe for concurrent use.
type aggregator struct {
	opts      Options
	filter    *eventFilter
	transform stackTransform
	log       *slog.Logger

	startingTrace bool
	pending       string // last stack-frame header, not yet in cur.frames
	cur           *trace

	folded Folded
	stats  aggStats
}

func newAggregator(opts Options, log *slog.Logger) *aggregator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &aggregator{
		opts:          opts,
		filter:        newEventFilter(opts.EventFilter),
		log:           log,
		startingTrace: true,
		cur:           &trace{},
		folded:        make(Folded),
		stats:         aggStats{events: make(map[string]int)},
	}
}

// consume feeds every line of r through the aggregator. End of input ends
// the open trace.
func (a *aggregator) consume(r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if perr := a.processLine(line); perr != nil {
				return perr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
	}
	return a.finishTrace()
}

// processLine handles one raw input line, terminator included.
func (a *aggregator) processLine(line string) error {
	if strings.TrimSpace(line) == "" {
		return a.finishTrace()
	}

	if a.startingTrace {
		a.beginTrace(a.parseTraceStart(line))
		return nil
	}

	m := stackFrameRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		// Inlined frame: no address or module.
		if a.opts.InlineReplacesHeader {
			a.pending = ""
		} else {
			a.flushPending()
		}
		a.cur.frames = append(a.cur.frames, line)
		return nil
	}

	a.flushPending()
	a.pending = m[1]
	return nil
}

func (a *aggregator) parseTraceStart(line string) *trace {
	t := &trace{}
	if m := processRe.FindStringSubmatch(line); m != nil {
		t.process = m[1]
		if (a.opts.IncludePID || a.opts.IncludeTID) && m[2] != "" {
			t.process += "-" + m[2]
		}
		if a.opts.IncludeTID && m[3] != "" {
			t.process += "/" + m[3]
		}
	}
	if m := eventRe.FindStringSubmatch(line); m != nil {
		t.event, t.hasEvent = m[1], true
	}
	return t
}

// beginTrace makes t the open trace. The first trace resolves an empty
// event filter.
func (a *aggregator) beginTrace(t *trace) {
	a.startingTrace = false
	a.pending = ""
	a.cur = t
	a.stats.traces++
	if t.hasEvent {
		a.stats.events[t.event]++
	} else {
		a.stats.events[noEventLabel]++
	}
	if a.filter.resolve(t) {
		a.log.Debug("event filter resolved from first trace", "events", a.filter.String())
	}
}

func (a *aggregator) flushPending() {
	if a.pending == "" {
		return
	}
	a.cur.frames = append(a.cur.frames, a.pending)
	a.pending = ""
}

// finishTrace ends the open trace and counts it if its event passes the
// filter. Calling it with no open trace is a no-op.
func (a *aggregator) finishTrace() error {
	open := !a.startingTrace
	a.startingTrace = true
	a.flushPending()
	t := a.cur
	a.cur = &trace{}
	if !open {
		return nil
	}

	if !a.filter.accepts(t) {
		a.stats.filtered++
		return nil
	}

	frames := t.stack()
	if a.transform != nil {
		out, keep, err := a.transform.apply(t, frames)
		if err != nil {
			return err
		}
		if !keep {
			a.stats.dropped++
			return nil
		}
		frames = out
	}

	key := foldStack(t.process, frames)
	if key == "" {
		a.stats.dropped++
		return nil
	}
	a.folded[key]++
	a.stats.counted++
	return nil
}

// addTrace folds a fully built trace, bypassing line parsing.
func (a *aggregator) addTrace(t *trace) error {
	if !a.startingTrace {
		if err := a.finishTrace(); err != nil {
			return err
		}
	}
	a.beginTrace(t)
	return a.finishTrace()
}

// result ends any open trace and returns the aggregate.
func (a *aggregator) result() (Folded, error) {
	if err := a.finishTrace(); err != nil {
		return nil, err
	}
	return a.folded, nil
}
