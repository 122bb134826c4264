// Package membercache keeps recently decompressed members in memory,
// so reopening a popular member skips the decoder.
package membercache

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

const slots = 64

// Key names a member by the archive file and the offset of its header,
// since names can repeat within an archive.
type Key struct {
	Archive string
	Offset  int64
}

func keyHash(k Key) uint64 {
	var h xxhash.Digest
	h.WriteString(k.Archive)
	h.Write(binary.LittleEndian.AppendUint64(nil, uint64(k.Offset)))
	return h.Sum64()
}

// Cache splits a byte budget into a fixed number of slots.
// A member larger than one slot is never cached.
// A Cache is safe for concurrent use by multiple goroutines.
type Cache struct {
	mu     sync.Mutex
	lfu    *tinylfu.T[Key, []byte]
	bytes  int
	perMax int
}

// New returns a cache holding at most budget bytes, or nil if budget is not positive.
// A nil Cache is valid and caches nothing.
func New(budget int) *Cache {
	if budget <= 0 {
		return nil
	}
	c := &Cache{perMax: budget / slots}
	c.lfu = tinylfu.New[Key, []byte](slots, slots*10, keyHash,
		tinylfu.OnEvict(func(_ Key, v []byte) { c.bytes -= len(v) }))
	return c
}

// Get returns the cached content, which the caller must not modify.
func (c *Cache) Get(k Key) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lfu.Get(k)
}

// Add offers content for caching. The cache may decline it.
func (c *Cache) Add(k Key, content []byte) {
	if c == nil || len(content) > c.perMax {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lfu.Get(k); ok {
		return
	}
	c.bytes += len(content)
	c.lfu.Add(k, content)
}

// Bytes is the total size of the cached content.
func (c *Cache) Bytes() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}
