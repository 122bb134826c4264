// Package indexcache remembers the headers found in each archive file,
// so that registering an unchanged archive again needs no scan.
package indexcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
	"github.com/elliotnunn/arjfs/internal/arj"
	"github.com/elliotnunn/arjfs/internal/fileid"
)

const version = 1

var errBadRecord = errors.New("malformed index cache record")

// Entry is the result of scanning one archive file.
type Entry struct {
	Start   int64 // of the archive header
	Main    *arj.Header
	Members []*arj.Header
	Stopped string // why scanning ended early, or empty
}

// Cache is safe for concurrent use.
type Cache struct {
	db *pebble.DB
}

// Open opens or creates the cache database in dir.
// An empty dir keeps the database in memory.
func Open(dir string) (*Cache, error) {
	opts := &pebble.Options{}
	if dir == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("index cache %s: %w", dir, err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

func key(id fileid.ID) []byte {
	return append([]byte("arj\x00"), id[:]...)
}

// Get returns the entry stored for id.
// A missing or unreadable entry is reported as absent.
func (c *Cache) Get(id fileid.ID) (*Entry, bool) {
	val, closer, err := c.db.Get(key(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false
	} else if err != nil {
		slog.Warn("indexCacheGetError", "id", id, "err", err)
		return nil, false
	}
	defer closer.Close()

	e, err := decode(val)
	if err != nil {
		slog.Warn("indexCacheDecodeError", "id", id, "err", err)
		return nil, false
	}
	return e, true
}

func (c *Cache) Put(id fileid.ID, e *Entry) error {
	return c.db.Set(key(id), encode(e), pebble.Sync)
}

// Delete forgets id, which is not an error if it was never stored.
func (c *Cache) Delete(id fileid.ID) error {
	return c.db.Delete(key(id), pebble.Sync)
}

// Record layout: version, start, stopped reason, header count,
// then per header its offset, data offset and raw bytes.
// The archive header comes first.
func encode(e *Entry) []byte {
	b := []byte{version}
	b = binary.AppendVarint(b, e.Start)
	b = binary.AppendUvarint(b, uint64(len(e.Stopped)))
	b = append(b, e.Stopped...)
	b = binary.AppendUvarint(b, uint64(1+len(e.Members)))
	for _, h := range append([]*arj.Header{e.Main}, e.Members...) {
		b = binary.AppendVarint(b, h.Offset)
		b = binary.AppendVarint(b, h.DataOffset)
		rec := h.Record()
		b = binary.AppendUvarint(b, uint64(len(rec)))
		b = append(b, rec...)
	}
	return b
}

type decoder struct {
	b   []byte
	err error
}

func (d *decoder) varint() int64 {
	v, n := binary.Varint(d.b)
	if n <= 0 {
		d.err = errBadRecord
		return 0
	}
	d.b = d.b[n:]
	return v
}

func (d *decoder) bytes() []byte {
	n, k := binary.Uvarint(d.b)
	if k <= 0 || n > uint64(len(d.b)-k) {
		d.err = errBadRecord
		return nil
	}
	v := d.b[k:][:n]
	d.b = d.b[k+int(n):]
	return v
}

func decode(b []byte) (*Entry, error) {
	if len(b) == 0 || b[0] != version {
		return nil, errBadRecord
	}
	d := &decoder{b: b[1:]}
	e := &Entry{Start: d.varint(), Stopped: string(d.bytes())}
	count, k := binary.Uvarint(d.b)
	if k <= 0 || d.err != nil {
		return nil, errBadRecord
	}
	d.b = d.b[k:]

	for i := uint64(0); i < count; i++ {
		off, dataOff := d.varint(), d.varint()
		rec := d.bytes()
		if d.err != nil {
			return nil, d.err
		}
		h, err := arj.ParseHeader(rec, off, dataOff)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			e.Main = h
		} else {
			e.Members = append(e.Members, h)
		}
	}
	if e.Main == nil || len(d.b) != 0 {
		return nil, errBadRecord
	}
	return e, nil
}
