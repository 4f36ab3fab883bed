package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

// Folded maps a folded stack ("root;...;leaf") to its sample count.
type Folded map[string]int

// Keys returns the stacks in sorted order.
func (f Folded) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f Folded) Total() int {
	n := 0
	for _, c := range f {
		n += c
	}
	return n
}

// writeFolded emits one "stack count" line per key in sorted order.
func writeFolded(w io.Writer, f Folded) error {
	bw := bufio.NewWriter(w)
	for _, k := range f.Keys() {
		if _, err := fmt.Fprintf(bw, "%s %d\n", k, f[k]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
