package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

type topEntry struct {
	name       string
	selfCount  int
	totalCount int
}

// computeTop ranks stack segments by self count (leaf), then total count
// (anywhere in the stack, once per stack), then name.
func computeTop(f Folded) []topEntry {
	selfCounts := make(map[string]int)
	totalCounts := make(map[string]int)

	for key, cnt := range f {
		segs := strings.Split(key, ";")
		selfCounts[segs[len(segs)-1]] += cnt
		seen := make(map[string]bool, len(segs))
		for _, s := range segs {
			if !seen[s] {
				totalCounts[s] += cnt
				seen[s] = true
			}
		}
	}

	ranked := make([]topEntry, 0, len(totalCounts))
	for name, tc := range totalCounts {
		ranked = append(ranked, topEntry{name, selfCounts[name], tc})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.selfCount != b.selfCount {
			return a.selfCount > b.selfCount
		}
		if a.totalCount != b.totalCount {
			return a.totalCount > b.totalCount
		}
		return a.name < b.name
	})
	return ranked
}

func printTop(w io.Writer, f Folded, top int) {
	total := f.Total()
	if total == 0 {
		return
	}
	ranked := computeTop(f)
	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}

	fmt.Fprintf(w, "%-50s %7s %7s %9s\n", "FRAME", "SELF%", "TOTAL%", "SAMPLES")
	for _, e := range ranked {
		sp := 100.0 * float64(e.selfCount) / float64(total)
		tp := 100.0 * float64(e.totalCount) / float64(total)
		fmt.Fprintf(w, "%-50s %6.1f%% %6.1f%% %9d\n", e.name, sp, tp, e.selfCount)
	}
	fmt.Fprintf(w, "\nTotal samples: %d\n", total)
}
