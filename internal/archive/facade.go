package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/elliotnunn/arjfs/internal/arj"
	"github.com/elliotnunn/arjfs/internal/membercache"
)

// ErrBusy is returned by [Facade.Open] while another member is open.
// It indicates a bug in the caller.
var ErrBusy = errors.New("another archive member is already open")

// Facade opens members one at a time.
// For several members open at once, use the [fs.FS] from [NewFS].
type Facade struct {
	Index *Index

	// Fallback, if not empty, is a directory of loose files that Open reads instead of the index.
	Fallback string

	// Cache, if not nil, holds decompressed members across sessions.
	Cache *membercache.Cache

	mu   sync.Mutex
	open *Member
}

func New(ix *Index) *Facade {
	return &Facade{Index: ix}
}

func (f *Facade) Register(pathname string) error {
	return f.Index.Register(pathname)
}

// Has reports whether Open could find name, ignoring case unless in fallback mode.
func (f *Facade) Has(name string) bool {
	if f.Fallback != "" {
		info, err := fs.Stat(os.DirFS(f.Fallback), name)
		return err == nil && info.Mode().IsRegular()
	}
	return f.Index.Has(name)
}

// Open decompresses a member in full and starts a session on it,
// which lasts until the returned Member is closed.
//
// Errors are [fs.PathError] values wrapping [ErrBusy], [fs.ErrNotExist],
// or the decoding errors of package arj. No session is left open on error.
func (f *Facade) Open(name string) (*Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.open != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrBusy}
	}

	var m *Member
	release := func() {
		f.mu.Lock()
		if f.open == m {
			f.open = nil
		}
		f.mu.Unlock()
	}

	if f.Fallback != "" {
		content, info, err := readLoose(f.Fallback, name)
		if err != nil {
			return nil, err
		}
		m = newMember(content, info, release)
	} else {
		e, ok := f.Index.Lookup(name)
		if !ok {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		content, err := load(e, f.Cache)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		m = newMember(content, entryInfo(e), release)
	}
	f.open = m
	return m, nil
}

// load returns the content of a member, which the caller must not modify.
func load(e Entry, cache *membercache.Cache) ([]byte, error) {
	if e.Header.IsDir() {
		return nil, fmt.Errorf("%w: is a directory", fs.ErrInvalid)
	}
	key := membercache.Key{Archive: e.Archive.Path, Offset: e.Header.Offset}
	if content, ok := cache.Get(key); ok {
		return content, nil
	}
	content, err := arj.Decompress(e.Archive.src, e.Header)
	if err != nil {
		return nil, err
	}
	cache.Add(key, content)
	return content, nil
}

func readLoose(dir, name string) ([]byte, fileInfo, error) {
	fsys := os.DirFS(dir)
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, fileInfo{}, err
	}
	if !info.Mode().IsRegular() {
		return nil, fileInfo{}, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fileInfo{}, err
	}
	return content, fileInfo{
		name:    name,
		size:    int64(len(content)),
		mode:    info.Mode(),
		modTime: info.ModTime(),
		sys:     info.Sys(),
	}, nil
}
