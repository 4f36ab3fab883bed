// perf-fold: collapse `perf script --inline` stack samples into folded stacks.
//
// Usage:
//
//	perf script --inline | perf-fold [flags] | flamegraph.pl > flame.svg
//	perf-fold [flags] <file>...
//
// Each distinct root-to-leaf stack is printed once as "a;b;c count", sorted
// by stack. Inputs ending in .jfr/.jfr.gz are read as JFR recordings; .gz
// text inputs are decompressed; no file or "-" reads stdin.
//
// Commands: events, top
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// usageError marks bad flags or arguments (exit 2).
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

type cliFlags struct {
	eventFilter          []string
	includePID           bool
	includeTID           bool
	inlineReplacesHeader bool
	format               string
	output               string
	script               string
	jfrEvent             string
	verbose              bool
	top                  int
}

func (f *cliFlags) options() Options {
	return Options{
		EventFilter:          f.eventFilter,
		IncludePID:           f.includePID,
		IncludeTID:           f.includeTID,
		InlineReplacesHeader: f.inlineReplacesHeader,
	}
}

func (f *cliFlags) validate() error {
	switch f.format {
	case "folded", "pprof":
	default:
		return usageErrorf("unknown format %q (valid: folded, pprof)", f.format)
	}
	if !validJFREvent(f.jfrEvent) {
		return usageErrorf("unknown event type %q (valid: cpu, wall, alloc, lock)", f.jfrEvent)
	}
	if f.top < 0 {
		return usageErrorf("--top must be >= 0, got %d", f.top)
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func inputPaths(args []string) []string {
	if len(args) == 0 {
		return []string{"-"}
	}
	return args
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	f := &cliFlags{}

	root := &cobra.Command{
		Use:   "perf-fold [flags] [file ...]",
		Short: "Collapse perf script stack samples into folded stacks",
		Long: `Collapse perf script stack samples (with inlined frames) into folded
stacks, one "root;...;leaf count" line per distinct stack, sorted by stack.

Without --event-filter only traces of the first trace's event type are
folded.`,
		Example: `  perf script --inline | perf-fold | flamegraph.pl > flame.svg
  perf-fold --include-tid --event-filter cycles:u perf.txt
  perf-fold --format pprof -o cpu.pb.gz perf.txt.gz
  perf-fold --event wall profile.jfr`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return f.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFold(cmd, f, inputPaths(args))
		},
	}

	pf := root.PersistentFlags()
	pf.StringSliceVar(&f.eventFilter, "event-filter", nil, "Events to process (repeatable). Default: the first trace's event type.")
	pf.BoolVar(&f.includePID, "include-pid", false, "Include pid in process names.")
	pf.BoolVar(&f.includeTID, "include-tid", false, "Include pid and tid in process names.")
	pf.BoolVar(&f.inlineReplacesHeader, "inline-replaces-header", false, "Drop a frame header when inlined frames follow it.")
	pf.StringVar(&f.script, "script", "", "Starlark file defining transform(process, event, frames).")
	pf.StringVarP(&f.jfrEvent, "event", "e", "cpu", "JFR event type: cpu, wall, alloc, lock.")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Log diagnostics to stderr.")

	root.Flags().StringVar(&f.format, "format", "folded", "Output format: folded, pprof.")
	root.Flags().StringVarP(&f.output, "output", "o", "", "Write output to FILE instead of stdout.")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(newEventsCmd(f), newTopCmd(f))
	return root
}

func newEventsCmd(f *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "events [file ...]",
		Short: "List event types found in trace headers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(cmd, f, inputPaths(args))
		},
	}
}

func newTopCmd(f *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top [file ...]",
		Short: "Rank frames by self and total samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			folded, err := aggregate(cmd, f, inputPaths(args))
			if err != nil {
				return err
			}
			printTop(cmd.OutOrStdout(), folded, f.top)
			return nil
		},
	}
	cmd.Flags().IntVar(&f.top, "top", 10, "Limit output rows (0 = unlimited).")
	return cmd
}

// aggregate folds every input into one result.
func aggregate(cmd *cobra.Command, f *cliFlags, paths []string) (Folded, error) {
	log := newLogger(cmd.ErrOrStderr(), f.verbose)
	a := newAggregator(f.options(), log)
	if f.script != "" {
		s, err := loadScript(f.script, log)
		if err != nil {
			return nil, err
		}
		a.transform = s
	}

	for _, path := range paths {
		if err := foldInput(a, path, cmd.InOrStdin(), f.jfrEvent); err != nil {
			return nil, err
		}
	}
	folded, err := a.result()
	if err != nil {
		return nil, err
	}
	log.Debug("folded",
		"traces", a.stats.traces,
		"counted", a.stats.counted,
		"filtered", a.stats.filtered,
		"dropped", a.stats.dropped,
		"stacks", len(folded),
		"events", a.filter.String())
	if a.stats.traces > 0 && a.stats.counted == 0 {
		log.Warn("no traces were folded", "events", a.filter.String())
	}
	return folded, nil
}

func runFold(cmd *cobra.Command, f *cliFlags, paths []string) (err error) {
	folded, err := aggregate(cmd, f, paths)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if f.output != "" {
		out, oerr := os.Create(f.output)
		if oerr != nil {
			return oerr
		}
		defer func() {
			if cerr := out.Close(); err == nil {
				err = cerr
			}
		}()
		w = out
	}

	if f.format == "pprof" {
		return writePprof(w, folded)
	}
	return writeFolded(w, folded)
}

func runEvents(cmd *cobra.Command, f *cliFlags, paths []string) error {
	counts := make(map[string]int)
	for _, path := range paths {
		if isJFRPath(path) {
			jc, err := discoverJFREvents(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			for k, v := range jc {
				counts[k] += v
			}
			continue
		}
		// Headers are counted as they are read, so the filter never
		// hides an event here.
		a := newAggregator(Options{}, nil)
		if err := foldInput(a, path, cmd.InOrStdin(), f.jfrEvent); err != nil {
			return err
		}
		for k, v := range a.stats.events {
			counts[k] += v
		}
	}
	printEvents(cmd.OutOrStdout(), counts)
	return nil
}

// ---------------------------------------------------------------------------
// main
// ---------------------------------------------------------------------------

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
