package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// openReader opens a file for reading, handling gzip and stdin ("-").
func openReader(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &gzipReadCloser{gz: gr, f: f}, nil
	}
	return f, nil
}

type gzipReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g *gzipReadCloser) Close() error {
	g.gz.Close()
	return g.f.Close()
}

func isJFRPath(path string) bool {
	if path == "-" {
		return false
	}
	p := strings.ToLower(path)
	return strings.HasSuffix(p, ".jfr") || strings.HasSuffix(p, ".jfr.gz")
}

// foldInput feeds one input into a: JFR recordings by event type, anything
// else as perf script text. The end of each input ends its last trace.
func foldInput(a *aggregator, path string, stdin io.Reader, jfrEvent string) error {
	if isJFRPath(path) {
		if err := foldJFR(a, path, jfrEvent); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	}
	rc, err := openReader(path, stdin)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := a.consume(rc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
