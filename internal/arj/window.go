package arj

import "fmt"

const (
	dicSize   = 26624 // history kept by both LZSS decoders
	threshold = 3     // shortest match
	maxMatch  = 256
)

// window is the LZSS history buffer. It doubles as the staging area for output:
// every time the cursor wraps, the whole ring is copied to dst.
type window struct {
	ring     [dicSize]byte
	pos      int
	dst      []byte
	flushed  int
	produced int // may overshoot len(dst) on the final match
}

func newWindow(dst []byte) *window {
	return &window{dst: dst}
}

func (w *window) remaining() int { return len(w.dst) - w.produced }

func (w *window) put(c byte) {
	w.ring[w.pos] = c
	w.produced++
	w.pos++
	if w.pos == dicSize {
		w.flush()
	}
}

// copyMatch repeats length bytes starting distance+1 bytes behind the cursor.
// Source and destination may overlap, so the copy goes one byte at a time.
func (w *window) copyMatch(distance, length int) error {
	if distance < 0 || distance >= dicSize {
		return fmt.Errorf("%w: match distance %d", ErrCorrupt, distance)
	}
	i := w.pos - distance - 1
	if i < 0 {
		i += dicSize
	}
	w.produced += length

	if i < w.pos && w.pos+length < dicSize {
		for k := range length {
			w.ring[w.pos+k] = w.ring[i+k]
		}
		w.pos += length
		return nil
	}

	for ; length > 0; length-- {
		w.ring[w.pos] = w.ring[i]
		w.pos++
		if w.pos == dicSize {
			w.flush()
		}
		i++
		if i == dicSize {
			i = 0
		}
	}
	return nil
}

// flush copies the filled part of the ring to dst, truncating at the declared size.
func (w *window) flush() {
	w.flushed += copy(w.dst[w.flushed:], w.ring[:w.pos])
	w.pos = 0
}
