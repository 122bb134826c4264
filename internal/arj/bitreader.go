package arj

import (
	"bufio"
	"io"
)

// bitReader keeps a 16-bit window onto an MSB-first bit stream.
// Once the packed size is used up it keeps supplying zero bits:
// a decoder that wants more data than the header declared gets zeroes, not an error.
type bitReader struct {
	r      io.ByteReader
	remain int64  // packed bytes not yet pulled into sub
	window uint16 // next 16 bits of the stream, first bit at the top
	sub    byte   // bits queued behind the window, left-aligned
	count  int    // number of valid bits in sub
	err    error  // first read error from r
}

func newBitReader(r io.Reader, packed int64) *bitReader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReaderSize(r, 4096)
	}
	b := &bitReader{r: br, remain: packed}
	b.fill(16)
	return b
}

// fill discards n bits from the top of the window.
func (b *bitReader) fill(n int) {
	for n > b.count {
		n -= b.count
		b.window = b.window<<b.count | uint16(b.sub>>(8-b.count))
		b.sub = b.next()
		b.count = 8
	}
	b.count -= n
	b.window = b.window<<n | uint16(b.sub>>(8-n))
	b.sub <<= n
}

func (b *bitReader) next() byte {
	if b.remain <= 0 {
		return 0
	}
	b.remain--
	c, err := b.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		if b.err == nil {
			b.err = err
		}
		return 0
	}
	return c
}

// bits consumes n bits (0 to 16) and returns them right-aligned.
func (b *bitReader) bits(n int) int {
	v := int(b.window >> (16 - n))
	b.fill(n)
	return v
}

func (b *bitReader) bit() bool {
	return b.bits(1) != 0
}
