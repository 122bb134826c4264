package arj

import "fmt"

// readPTLengths reads the code lengths of a small table (the code-length code or the distance code).
// A zero count means the table has one symbol and spends no bits on it.
// Lengths are 3 bits, with 7 extended by a run of 1 bits and a terminating 0.
// Immediately after entry special, 2 bits count extra zero lengths.
func (d *lzhDecoder) readPTLengths(h *huffmanTable, nbit, special int) error {
	b := d.br
	n := b.bits(nbit)
	if n == 0 {
		return h.uniform(b.bits(nbit))
	}
	if n > h.n {
		return fmt.Errorf("%w: %d code lengths for a %d-symbol table", ErrCorrupt, n, h.n)
	}

	i := 0
	for i < n {
		c := int(b.window >> 13)
		if c == 7 {
			for mask := uint16(1) << 12; mask&b.window != 0; mask >>= 1 {
				c++
			}
		}
		if c > maxCodeLen {
			return fmt.Errorf("%w: code length %d", ErrCorrupt, c)
		}
		if c < 7 {
			b.fill(3)
		} else {
			b.fill(c - 3)
		}
		h.lengths[i] = uint8(c)
		i++

		if i == special {
			z := b.bits(2)
			if i+z > h.n {
				return fmt.Errorf("%w: zero run overruns table", ErrCorrupt)
			}
			clear(h.lengths[i : i+z])
			i += z
		}
	}
	clear(h.lengths[i:])
	return h.build()
}

// readCLengths reads the literal/length code lengths, themselves coded with d.t.
// Symbols 0 to 2 are runs of zero lengths (1, 3 to 18, 20 to 531), the rest are length+2.
func (d *lzhDecoder) readCLengths() error {
	b := d.br
	n := b.bits(cbit)
	if n == 0 {
		return d.c.uniform(b.bits(cbit))
	}
	if n > nc {
		return fmt.Errorf("%w: %d code lengths for a %d-symbol table", ErrCorrupt, n, nc)
	}

	i := 0
	for i < n {
		c := d.t.read(b)
		if c > 2 {
			d.c.lengths[i] = uint8(c - 2)
			i++
			continue
		}

		switch c {
		case 0:
			c = 1
		case 1:
			c = b.bits(4) + 3
		case 2:
			c = b.bits(cbit) + 20
		}
		if i+c > nc {
			return fmt.Errorf("%w: zero run overruns table", ErrCorrupt)
		}
		clear(d.c.lengths[i : i+c])
		i += c
	}
	clear(d.c.lengths[i:])
	return d.c.build()
}
