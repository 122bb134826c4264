// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package archive indexes the members of ARJ archives by name
// and opens them as seekable in-memory files.
package archive

import (
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/elliotnunn/arjfs/internal/arj"
	"github.com/elliotnunn/arjfs/internal/fileid"
	"github.com/elliotnunn/arjfs/internal/indexcache"
	"github.com/elliotnunn/arjfs/internal/source"
)

// Options control how an [Index] is built.
type Options struct {
	// Flatten indexes members by base name, discarding directories.
	Flatten bool
	// Cache, if not nil, remembers scans across runs.
	Cache *indexcache.Cache
}

// Archive is a registered archive file.
type Archive struct {
	Path    string
	Name    string // base name without any compression suffix
	Filter  string // compression wrapped around the archive, if any
	Start   int64  // of the archive header, after any self-extractor stub
	Comment string
	ModTime time.Time // when the archive was made
	Members int       // headers read, including shadowed ones

	src *source.Source
}

// Entry is an indexed member.
type Entry struct {
	*arj.Header
	Archive *Archive
	Name    string // the slash-separated path it is indexed under
}

// Index maps case-folded member names to headers.
// Registration and lookup may be called concurrently.
type Index struct {
	opts Options

	mu       sync.RWMutex
	gen      int // counts registrations
	archives []*Archive
	entries  map[string]Entry
}

func NewIndex(opts Options) *Index {
	return &Index{opts: opts, entries: make(map[string]Entry)}
}

func fold(name string) string { return strings.ToLower(name) }

// Register reads the member headers of the archive at pathname.
//
// A bad member header ends the scan but keeps the members before it, so no error is returned.
// A member registered later replaces an earlier one of the same name.
func (ix *Index) Register(pathname string) error {
	src, err := source.Open(pathname)
	if err != nil {
		return err
	}

	scan, err := ix.scan(pathname, src)
	if err != nil {
		src.Close()
		return &fs.PathError{Op: "register", Path: pathname, Err: err}
	}

	a := &Archive{
		Path:    pathname,
		Name:    src.Name,
		Filter:  src.Filter,
		Start:   scan.Start,
		Comment: scan.Main.Comment,
		ModTime: scan.Main.ModTime(),
		Members: len(scan.Members),
		src:     src,
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.gen++
	ix.archives = append(ix.archives, a)
	for _, h := range scan.Members {
		name, ok := ix.entryName(h)
		if !ok {
			continue
		}
		ix.entries[fold(name)] = Entry{Header: h, Archive: a, Name: name}
	}
	return nil
}

func (ix *Index) scan(pathname string, src *source.Source) (*indexcache.Entry, error) {
	var id fileid.ID
	cache := ix.opts.Cache
	if cache != nil {
		var err error
		id, err = fileid.Get(pathname)
		if err != nil {
			if !errors.Is(err, fileid.ErrNotOS) {
				slog.Warn("fileIDError", "path", pathname, "err", err)
			}
			cache = nil
		}
	}

	if cache != nil {
		if e, ok := cache.Get(id); ok {
			if e.Stopped != "" {
				slog.Warn("arjHeaderError", "path", pathname, "members", len(e.Members), "err", e.Stopped, "cached", true)
			}
			return e, nil
		}
	}

	start, err := arj.FindArchiveStart(src, 0, src.Size)
	if err != nil {
		return nil, err
	}
	main, members, err := arj.Scan(src, start)
	if main == nil {
		return nil, err
	}
	e := &indexcache.Entry{Start: start, Main: main, Members: members}
	if err != nil {
		slog.Warn("arjHeaderError", "path", pathname, "members", len(members), "err", err)
		e.Stopped = err.Error()
	}

	if cache != nil {
		if err := cache.Put(id, e); err != nil {
			slog.Warn("indexCachePutError", "path", pathname, "err", err)
		}
	}
	return e, nil
}

// entryName gives the path a member is indexed under, if it is indexed at all.
func (ix *Index) entryName(h *arj.Header) (string, bool) {
	switch h.FileType {
	case arj.Binary, arj.Text:
	case arj.Directory:
		if ix.opts.Flatten {
			return "", false
		}
	default: // labels, chapters
		return "", false
	}

	name := strings.TrimSuffix(h.Path(), "/")
	if ix.opts.Flatten {
		name = path.Base(name)
	}
	if !fs.ValidPath(name) || name == "." {
		slog.Warn("arjBadName", "name", h.Name)
		return "", false
	}
	return name, true
}

// Has reports whether name is indexed, ignoring case.
func (ix *Index) Has(name string) bool {
	_, ok := ix.Lookup(name)
	return ok
}

func (ix *Index) Lookup(name string) (Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[fold(name)]
	return e, ok
}

// Names lists every indexed name in sorted order.
func (ix *Index) Names() []string {
	entries, _ := ix.snapshot()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// snapshot returns the entries sorted by name, and the registration count they reflect.
func (ix *Index) snapshot() ([]Entry, int) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entries := slices.Collect(maps.Values(ix.entries))
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return entries, ix.gen
}

// Glob lists the indexed names matching a doublestar pattern, ignoring case.
func (ix *Index) Glob(pattern string) ([]string, error) {
	pattern = fold(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}
	var names []string
	for _, name := range ix.Names() {
		if ok, _ := doublestar.Match(pattern, fold(name)); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// Archives lists the registered archives in order of registration.
func (ix *Index) Archives() []*Archive {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Clone(ix.archives)
}

// Close releases the archive files. The index must not be used afterwards.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	var errs []error
	for _, a := range ix.archives {
		errs = append(errs, a.src.Close())
	}
	ix.archives = nil
	ix.gen++
	clear(ix.entries)
	return errors.Join(errs...)
}
