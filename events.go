package main

import (
	"fmt"
	"io"
	"sort"
)

type eventEntry struct {
	name    string
	samples int
}

func rankEvents(counts map[string]int) []eventEntry {
	ranked := make([]eventEntry, 0, len(counts))
	for name, cnt := range counts {
		ranked = append(ranked, eventEntry{name, cnt})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].samples != ranked[j].samples {
			return ranked[i].samples > ranked[j].samples
		}
		return ranked[i].name < ranked[j].name
	})
	return ranked
}

func printEvents(w io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "no events found")
		return
	}
	fmt.Fprintf(w, "%-24s %9s\n", "EVENT", "SAMPLES")
	for _, e := range rankEvents(counts) {
		fmt.Fprintf(w, "%-24s %9d\n", e.name, e.samples)
	}
}
