package arj

import "io"

// Method 4 has no tables. Lengths and distances are unary-prefixed:
// each set bit adds the current step and doubles it, until a clear bit
// or the maximum width, then width raw bits follow.
const (
	lenStart, lenStop = 0, 7
	ptrStart, ptrStop = 9, 13
)

func decodeFastest(r io.Reader, packed int64, dst []byte) error {
	b := newBitReader(r, packed)
	w := newWindow(dst)

	for w.remaining() > 0 {
		if b.err != nil {
			return b.err
		}
		c := decodeLength(b)
		if c == 0 {
			w.put(byte(b.bits(8)))
			continue
		}
		if err := w.copyMatch(decodePointer(b), c-1+threshold); err != nil {
			return err
		}
	}
	w.flush()
	return b.err
}

func decodeLength(b *bitReader) int  { return unary(b, lenStart, lenStop) }
func decodePointer(b *bitReader) int { return unary(b, ptrStart, ptrStop) }

func unary(b *bitReader, start, stop int) int {
	plus, step := 0, 1<<start
	width := start
	for ; width < stop; width++ {
		if !b.bit() {
			break
		}
		plus += step
		step <<= 1
	}
	return plus + b.bits(width)
}
