package archive

import (
	"io"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/elliotnunn/arjfs/internal/membercache"
)

// FS presents an [Index] as a read-only file system.
// Unlike a [Facade], it allows any number of members to be open at once,
// each with its own decoded copy. Names are matched without regard to case.
type FS struct {
	ix    *Index
	cache *membercache.Cache

	mu   sync.Mutex
	gen  int
	dirs map[string]*dirNode // by folded path
}

type dirNode struct {
	info     fileInfo
	children map[string]fileInfo // by folded base name
}

var (
	_ fs.ReadDirFS = (*FS)(nil)
	_ fs.StatFS    = (*FS)(nil)
)

func NewFS(ix *Index, cache *membercache.Cache) *FS {
	return &FS{ix: ix, cache: cache, gen: -1}
}

// tree returns the directory hierarchy implied by the member paths,
// rebuilding it if more archives have been registered.
func (fsys *FS) tree() map[string]*dirNode {
	entries, gen := fsys.ix.snapshot()
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if gen == fsys.gen {
		return fsys.dirs
	}

	dirs := map[string]*dirNode{
		".": {info: fileInfo{name: ".", mode: fs.ModeDir | 0o555}, children: make(map[string]fileInfo)},
	}
	var mkdir func(name string) *dirNode
	mkdir = func(name string) *dirNode {
		if d, ok := dirs[fold(name)]; ok {
			return d
		}
		parent := mkdir(path.Dir(name))
		d := &dirNode{info: fileInfo{name: name, mode: fs.ModeDir | 0o555}, children: make(map[string]fileInfo)}
		dirs[fold(name)] = d
		parent.children[fold(path.Base(name))] = d.info
		return d
	}

	for _, e := range entries {
		info := entryInfo(e)
		if info.IsDir() {
			mkdir(e.Name).info = info
		} else {
			mkdir(path.Dir(e.Name)).children[fold(path.Base(e.Name))] = info
		}
	}

	// directories hide any file of the same name, and pick up header metadata
	for name, d := range dirs {
		if name != "." {
			dirs[fold(path.Dir(d.info.name))].children[fold(path.Base(d.info.name))] = d.info
		}
	}

	fsys.gen, fsys.dirs = gen, dirs
	return dirs
}

func (fsys *FS) stat(op, name string) (fileInfo, error) {
	if !fs.ValidPath(name) {
		return fileInfo{}, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	dirs := fsys.tree()
	if d, ok := dirs[fold(name)]; ok {
		return d.info, nil
	}
	if parent, ok := dirs[fold(path.Dir(name))]; ok {
		if info, ok := parent.children[fold(path.Base(name))]; ok {
			return info, nil
		}
	}
	return fileInfo{}, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

func (fsys *FS) Stat(name string) (fs.FileInfo, error) {
	info, err := fsys.stat("stat", name)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (fsys *FS) Open(name string) (fs.File, error) {
	info, err := fsys.stat("open", name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &dir{info: info, entries: fsys.list(info.name)}, nil
	}

	e, ok := fsys.ix.Lookup(info.name)
	if !ok { // unregistered since the tree was built
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	content, err := load(e, fsys.cache)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return newMember(content, info, nil), nil
}

func (fsys *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	info, err := fsys.stat("readdir", name)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return fsys.list(info.name), nil
}

func (fsys *FS) list(name string) []fs.DirEntry {
	d := fsys.tree()[fold(name)]
	infos := slices.Collect(maps.Values(d.children))
	slices.SortFunc(infos, func(a, b fileInfo) int { return strings.Compare(a.Name(), b.Name()) })
	list := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		list[i] = info
	}
	return list
}

type dir struct {
	info    fileInfo
	entries []fs.DirEntry
	off     int
}

func (d *dir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *dir) Close() error               { return nil }

func (d *dir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.info.name, Err: fs.ErrInvalid}
}

func (d *dir) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.off:]
	if n <= 0 {
		d.off = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(rest))
	d.off += n
	return rest[:n], nil
}
