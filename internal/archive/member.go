package archive

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"time"
)

// Member is the whole content of an opened member, held in memory.
// It implements [fs.File], [io.ReaderAt] and [io.Seeker].
type Member struct {
	r       *bytes.Reader
	info    fileInfo
	eos     bool
	release func()
}

func newMember(content []byte, info fileInfo, release func()) *Member {
	return &Member{r: bytes.NewReader(content), info: info, release: release}
}

func (m *Member) Read(p []byte) (int, error) {
	if m.r == nil {
		return 0, m.closedErr("read")
	}
	n, err := m.r.Read(p)
	if n < len(p) {
		m.eos = true
	}
	return n, err
}

func (m *Member) ReadAt(p []byte, off int64) (int, error) {
	if m.r == nil {
		return 0, m.closedErr("read")
	}
	return m.r.ReadAt(p, off)
}

func (m *Member) Seek(offset int64, whence int) (int64, error) {
	if m.r == nil {
		return 0, m.closedErr("seek")
	}
	pos, err := m.r.Seek(offset, whence)
	if err == nil {
		m.eos = false
	}
	return pos, err
}

// Pos is the offset of the next byte to be read.
func (m *Member) Pos() int64 {
	if m.r == nil {
		return 0
	}
	return m.r.Size() - int64(m.r.Len())
}

func (m *Member) Size() int64 { return m.info.size }

// EOS reports whether a Read has come up short since the last Seek.
// Reading exactly up to the end does not set it.
func (m *Member) EOS() bool {
	return m.r == nil || m.eos
}

func (m *Member) Stat() (fs.FileInfo, error) { return m.info, nil }

// Close drops the content and ends the session it belongs to.
func (m *Member) Close() error {
	if m.r == nil {
		return m.closedErr("close")
	}
	m.r = nil
	if m.release != nil {
		m.release()
	}
	return nil
}

func (m *Member) closedErr(op string) error {
	return &fs.PathError{Op: op, Path: m.info.name, Err: fs.ErrClosed}
}

// fileInfo serves for members, synthesized directories and fallback files alike.
type fileInfo struct {
	name    string // full slash path
	size    int64
	mode    fs.FileMode
	modTime time.Time
	sys     any
}

func (i fileInfo) Name() string {
	if i.name == "." {
		return "."
	}
	return path.Base(i.name)
}
func (i fileInfo) Size() int64                { return i.size }
func (i fileInfo) Mode() fs.FileMode          { return i.mode }
func (i fileInfo) ModTime() time.Time         { return i.modTime }
func (i fileInfo) IsDir() bool                { return i.mode.IsDir() }
func (i fileInfo) Sys() any                   { return i.sys }
func (i fileInfo) Type() fs.FileMode          { return i.mode.Type() }
func (i fileInfo) Info() (fs.FileInfo, error) { return i, nil }
func (i fileInfo) String() string             { return fs.FormatFileInfo(i) }

func entryInfo(e Entry) fileInfo {
	mode := e.Header.Mode()
	if !e.Header.IsDir() {
		mode = mode.Perm() // always served as a regular file
	}
	size := e.Header.Unpacked
	if e.Header.IsDir() {
		size = 0
	}
	return fileInfo{
		name:    e.Name,
		size:    size,
		mode:    mode,
		modTime: e.Header.ModTime(),
		sys:     e.Header,
	}
}

var _ io.ReadSeeker = (*Member)(nil)
