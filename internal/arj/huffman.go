package arj

import "fmt"

const maxCodeLen = 16

// huffmanTable decodes a canonical Huffman code.
//
// Codes no longer than bits are looked up directly in table,
// which is indexed by the top bits of the 16-bit window.
// Longer codes land on an entry >= n, which is the root of an overflow tree:
// left and right hold child links, and the arena is allocated upwards from n.
// A link below n is a symbol.
type huffmanTable struct {
	bits    int
	n       int
	lengths []uint8
	table   []uint16
	left    []uint16
	right   []uint16
}

func newHuffmanTable(n, tableBits int) *huffmanTable {
	return &huffmanTable{
		bits:    tableBits,
		n:       n,
		lengths: make([]uint8, n),
		table:   make([]uint16, 1<<tableBits),
		left:    make([]uint16, 2*n-1),
		right:   make([]uint16, 2*n-1),
	}
}

// uniform makes every lookup return sym without consuming any bits.
func (h *huffmanTable) uniform(sym int) error {
	if sym >= h.n {
		return fmt.Errorf("%w: single-symbol table names symbol %d of %d", ErrCorrupt, sym, h.n)
	}
	clear(h.lengths)
	for i := range h.table {
		h.table[i] = uint16(sym)
	}
	return nil
}

// build assigns canonical codes to h.lengths, which the caller has just filled.
func (h *huffmanTable) build() error {
	var count [maxCodeLen + 1]int
	for _, l := range h.lengths {
		if l > maxCodeLen {
			return fmt.Errorf("%w: code length %d", ErrCorrupt, l)
		}
		count[l]++
	}

	// start[l] is the first code of length l, left-aligned in 16 bits
	var start [maxCodeLen + 2]int
	for l := 1; l <= maxCodeLen; l++ {
		start[l+1] = start[l] + count[l]<<(maxCodeLen-l)
	}
	if start[maxCodeLen+1] != 1<<maxCodeLen {
		return fmt.Errorf("%w: code lengths weigh %#x, not 0x10000", ErrCorrupt, start[maxCodeLen+1])
	}

	jut := maxCodeLen - h.bits
	var weight [maxCodeLen + 1]int
	for l := 1; l <= maxCodeLen; l++ {
		if l <= h.bits {
			start[l] >>= jut
			weight[l] = 1 << (h.bits - l)
		} else {
			weight[l] = 1 << (maxCodeLen - l)
		}
	}

	clear(h.table)
	avail := h.n
	mask := 1 << (15 - h.bits)
	for ch, l := range h.lengths {
		if l == 0 {
			continue
		}
		k := start[l]
		next := k + weight[l]
		if int(l) <= h.bits {
			if next > len(h.table) {
				return fmt.Errorf("%w: code table overrun", ErrCorrupt)
			}
			for i := k; i < next; i++ {
				h.table[i] = uint16(ch)
			}
		} else {
			p := &h.table[k>>jut]
			for i := int(l) - h.bits; i != 0; i-- {
				if *p == 0 {
					if avail >= len(h.left) {
						return fmt.Errorf("%w: overflow tree exhausted", ErrCorrupt)
					}
					h.left[avail], h.right[avail] = 0, 0
					*p = uint16(avail)
					avail++
				}
				if k&mask != 0 {
					p = &h.right[*p]
				} else {
					p = &h.left[*p]
				}
				k <<= 1
			}
			*p = uint16(ch)
		}
		start[l] = next
	}
	return nil
}

// decode looks up the symbol at the top of window and returns it with its code length.
// Bits below the table width steer the walk through the overflow tree.
func (h *huffmanTable) decode(window uint16) (int, int) {
	j := int(h.table[window>>(maxCodeLen-h.bits)])
	mask := uint16(1) << (15 - h.bits)
	for j >= h.n {
		if window&mask != 0 {
			j = int(h.right[j])
		} else {
			j = int(h.left[j])
		}
		mask >>= 1
	}
	return j, int(h.lengths[j])
}

// read decodes one symbol from b and consumes its code.
func (h *huffmanTable) read(b *bitReader) int {
	sym, n := h.decode(b.window)
	b.fill(n)
	return sym
}
