package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grafana/jfr-parser/parser"
	"github.com/grafana/jfr-parser/parser/types"
)

// JFR event labels accepted by --event.
var jfrEvents = []string{"cpu", "wall", "alloc", "lock"}

func validJFREvent(name string) bool {
	for _, e := range jfrEvents {
		if e == name {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Frame / thread resolution
// ---------------------------------------------------------------------------

func resolveFrame(p *parser.Parser, sf types.StackFrame) string {
	method := p.GetMethod(sf.Method)
	if method == nil {
		return "<unknown>"
	}
	className := ""
	if class := p.GetClass(method.Type); class != nil {
		className = p.GetSymbolString(class.Name)
	}
	methodName := p.GetSymbolString(method.Name)
	if className == "" {
		return methodName
	}
	return strings.ReplaceAll(className, "/", ".") + "." + methodName
}

func resolveThread(p *parser.Parser, ref types.ThreadRef) string {
	idx, ok := p.Threads.IDMap[ref]
	if !ok {
		return ""
	}
	t := &p.Threads.Thread[idx]
	if t.JavaName != "" {
		return t.JavaName
	}
	return t.OsName
}

func readJFRBytes(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gr.Close()
		return io.ReadAll(gr)
	}
	return io.ReadAll(f)
}

// ---------------------------------------------------------------------------
// JFR → traces
// ---------------------------------------------------------------------------

// foldJFR turns every sample of eventType in the recording into a trace
// (thread as process, eventType as event) and folds it through a.
func foldJFR(a *aggregator, path, eventType string) error {
	buf, err := readJFRBytes(path)
	if err != nil {
		return err
	}

	p := parser.NewParser(buf, parser.Options{})
	for {
		typ, err := p.ParseEvent()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse event: %w", err)
		}

		var stRef types.StackTraceRef
		var thRef types.ThreadRef
		var match bool

		switch {
		case eventType == "cpu" && typ == p.TypeMap.T_EXECUTION_SAMPLE:
			stRef = p.ExecutionSample.StackTrace
			thRef = p.ExecutionSample.SampledThread
			match = true
		case eventType == "wall" && typ == p.TypeMap.T_WALL_CLOCK_SAMPLE:
			stRef = p.WallClockSample.StackTrace
			thRef = p.WallClockSample.SampledThread
			match = true
		case eventType == "alloc" && typ == p.TypeMap.T_ALLOC_IN_NEW_TLAB:
			stRef = p.ObjectAllocationInNewTLAB.StackTrace
			thRef = p.ObjectAllocationInNewTLAB.EventThread
			match = true
		case eventType == "alloc" && typ == p.TypeMap.T_ALLOC_OUTSIDE_TLAB:
			stRef = p.ObjectAllocationOutsideTLAB.StackTrace
			thRef = p.ObjectAllocationOutsideTLAB.EventThread
			match = true
		case eventType == "alloc" && typ == p.TypeMap.T_ALLOC_SAMPLE:
			stRef = p.ObjectAllocationSample.StackTrace
			thRef = p.ObjectAllocationSample.EventThread
			match = true
		case eventType == "lock" && typ == p.TypeMap.T_MONITOR_ENTER:
			stRef = p.JavaMonitorEnter.StackTrace
			thRef = p.JavaMonitorEnter.EventThread
			match = true
		}
		if !match {
			continue
		}

		st := p.GetStacktrace(stRef)
		if st == nil || len(st.Frames) == 0 {
			continue
		}

		// JFR frames are leaf-first, the same order perf script prints them.
		t := &trace{
			process:  resolveThread(p, thRef),
			event:    eventType,
			hasEvent: true,
			frames:   make([]string, len(st.Frames)),
		}
		for i, f := range st.Frames {
			t.frames[i] = resolveFrame(p, f)
		}
		if err := a.addTrace(t); err != nil {
			return err
		}
	}
	return nil
}

// discoverJFREvents counts the samples of each supported event type.
func discoverJFREvents(path string) (map[string]int, error) {
	buf, err := readJFRBytes(path)
	if err != nil {
		return nil, err
	}

	p := parser.NewParser(buf, parser.Options{})
	counts := make(map[string]int)

	for {
		typ, err := p.ParseEvent()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch typ {
		case p.TypeMap.T_EXECUTION_SAMPLE:
			counts["cpu"]++
		case p.TypeMap.T_WALL_CLOCK_SAMPLE:
			counts["wall"]++
		case p.TypeMap.T_ALLOC_IN_NEW_TLAB, p.TypeMap.T_ALLOC_OUTSIDE_TLAB, p.TypeMap.T_ALLOC_SAMPLE:
			counts["alloc"]++
		case p.TypeMap.T_MONITOR_ENTER:
			counts["lock"]++
		}
	}
	return counts, nil
}
