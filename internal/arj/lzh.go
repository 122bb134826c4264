package arj

import (
	"fmt"
	"io"
)

const (
	codeBit = 16
	nc      = 255 + maxMatch + 2 - threshold // literals and match lengths
	np      = 16 + 1                         // distance classes
	nt      = codeBit + 3                    // code-length code
	cbit    = 9
	pbit    = 5
	tbit    = 5
)

// lzhDecoder holds the state of the method 1-3 codec between symbols.
// Every block starts with fresh tables.
type lzhDecoder struct {
	br    *bitReader
	t     *huffmanTable // codes the lengths of c
	c     *huffmanTable // literals and match lengths
	p     *huffmanTable // distances
	block int           // symbols left in this block
}

func decodeLZH(r io.Reader, packed int64, dst []byte) error {
	d := &lzhDecoder{
		br: newBitReader(r, packed),
		t:  newHuffmanTable(nt, 8),
		c:  newHuffmanTable(nc, 12),
		p:  newHuffmanTable(np, 8),
	}
	w := newWindow(dst)

	for w.remaining() > 0 {
		if d.br.err != nil {
			return d.br.err
		}
		c, err := d.symbol()
		if err != nil {
			return err
		}
		if c <= 255 {
			w.put(byte(c))
			continue
		}
		length := c - (256 - threshold)
		if err := w.copyMatch(d.distance(), length); err != nil {
			return err
		}
	}
	w.flush()
	return d.br.err
}

func (d *lzhDecoder) readBlockHeader() error {
	d.block = d.br.bits(codeBit)
	if d.block == 0 {
		d.block = 1 << codeBit // the 16-bit counter wraps
	}
	if err := d.readPTLengths(d.t, tbit, 3); err != nil {
		return fmt.Errorf("code-length table: %w", err)
	}
	if err := d.readCLengths(); err != nil {
		return fmt.Errorf("literal table: %w", err)
	}
	if err := d.readPTLengths(d.p, pbit, -1); err != nil {
		return fmt.Errorf("distance table: %w", err)
	}
	return nil
}

func (d *lzhDecoder) symbol() (int, error) {
	if d.block == 0 {
		if err := d.readBlockHeader(); err != nil {
			return 0, err
		}
	}
	d.block--
	return d.c.read(d.br), nil
}

// distance reads a distance class, then that many bits less one below a power of two.
func (d *lzhDecoder) distance() int {
	j := d.p.read(d.br)
	if j == 0 {
		return 0
	}
	j--
	return 1<<j + d.br.bits(j)
}
