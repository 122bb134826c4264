// Package source opens archive files for random access.
// Plain files are memory-mapped. Files wrapped in gzip or xz are expanded into memory,
// because ARJ headers can only be found by seeking.
package source

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/therootcompany/xz"
	"golang.org/x/exp/mmap"
)

// Source is the content of an archive file.
// Reads at or beyond Size return io.EOF.
type Source struct {
	r      io.ReaderAt
	closer io.Closer
	Size   int64
	Name   string // base name with any compression suffix removed
	Filter string // "gzip", "xz" or ""
}

func Open(pathname string) (*Source, error) {
	m, err := mmap.Open(pathname)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(pathname)

	var magic [6]byte
	n, _ := m.ReadAt(magic[:], 0)
	matchAt := func(s string) bool {
		return n >= len(s) && string(magic[:len(s)]) == s
	}

	var filter string
	var r io.Reader
	whole := io.NewSectionReader(m, 0, int64(m.Len()))
	switch {
	case matchAt("\x1f\x8b"): // gzip
		filter = "gzip"
		base = changeSuffix(base, ".gz .gzip")
		r, err = gzip.NewReader(whole)
	case matchAt("\xfd7zXZ\x00"): // xz
		filter = "xz"
		base = changeSuffix(base, ".xz")
		r, err = xz.NewReader(whole, xz.DefaultDictMax)
	default:
		return &Source{r: m, closer: m, Size: int64(m.Len()), Name: base}, nil
	}
	defer m.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filter, err)
	}

	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filter, err)
	}
	return &Source{r: bytes.NewReader(buf), Size: int64(len(buf)), Name: base, Filter: filter}, nil
}

func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.Size {
		return 0, io.EOF
	}
	return s.r.ReadAt(p, off)
}

func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func changeSuffix(s string, suffixes string) string {
	for _, from := range strings.Split(suffixes, " ") {
		if len(s) > len(from) && strings.EqualFold(s[len(s)-len(from):], from) {
			return s[:len(s)-len(from)]
		}
	}
	return s
}
