// Package arjtest writes ARJ archives for tests to read back.
// The compressors are plain reference encoders: greedy matching,
// Huffman lengths flattened until they fit in 16 bits.
package arjtest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math/bits"
	"time"

	"github.com/icza/bitio"
)

const (
	headerID     = 0xea60
	firstHdrSize = 30

	dicSize    = 26624
	threshold  = 3
	maxMatch   = 256
	maxCodeLen = 16

	codeBit = 16
	nc      = 255 + maxMatch + 2 - threshold
	np      = 16 + 1
	nt      = codeBit + 3
	cbit    = 9
	pbit    = 5
	tbit    = 5

	lenStart, lenStop = 0, 7
	ptrStart, ptrStop = 9, 13
)

// Methods and file types, as stored in headers
const (
	Stored    = 0
	Most      = 1
	Medium    = 2
	Fast      = 3
	Fastest   = 4
	Binary    = 0
	Text      = 1
	CommentHd = 2
	Directory = 3
)

// Member describes one archive member. Zero values give a stored binary file
// made on MS-DOS at ModTime.
type Member struct {
	Name     string
	Comment  string
	Data     []byte
	Method   uint8
	Flags    uint8
	HostOS   uint8
	FileType uint8
	Mode     uint16
	MTime    time.Time
	Ext      [][]byte // extended headers
	Packed   []byte   // if nil, data compressed with method
	CRC      *uint32  // if nil, CRC of data
}

func CRC(b []byte) uint32 { return crc32.ChecksumIEEE(b) }

var ModTime = time.Date(2001, time.September, 9, 1, 46, 40, 0, time.UTC)

func DOSTime(t time.Time) uint32 {
	date := uint32(t.Year()-1980)<<9 | uint32(t.Month())<<5 | uint32(t.Day())
	tod := uint32(t.Hour())<<11 | uint32(t.Minute())<<5 | uint32(t.Second()/2)
	return date<<16 | tod
}

func HeaderRecord(m Member, packedLen, unpackedLen int64, fileCRC uint32) []byte {
	payload := make([]byte, firstHdrSize)
	payload[0] = firstHdrSize
	payload[1] = 11
	payload[2] = 1
	payload[3] = m.HostOS
	payload[4] = m.Flags
	payload[5] = m.Method
	payload[6] = m.FileType
	mtime := m.MTime
	if mtime.IsZero() {
		mtime = ModTime
	}
	binary.LittleEndian.PutUint32(payload[8:], DOSTime(mtime))
	binary.LittleEndian.PutUint32(payload[12:], uint32(packedLen))
	binary.LittleEndian.PutUint32(payload[16:], uint32(unpackedLen))
	binary.LittleEndian.PutUint32(payload[20:], fileCRC)
	binary.LittleEndian.PutUint16(payload[26:], m.Mode)
	payload = append(payload, m.Name...)
	payload = append(payload, 0)
	payload = append(payload, m.Comment...)
	payload = append(payload, 0)

	rec := binary.LittleEndian.AppendUint16(nil, headerID)
	rec = binary.LittleEndian.AppendUint16(rec, uint16(len(payload)))
	rec = append(rec, payload...)
	rec = binary.LittleEndian.AppendUint32(rec, CRC(payload))
	return rec
}

func appendMember(buf []byte, m Member) []byte {
	packed := m.Packed
	if packed == nil {
		packed = Compress(m.Method, m.Data)
	}
	crc := CRC(m.Data)
	if m.CRC != nil {
		crc = *m.CRC
	}
	buf = append(buf, HeaderRecord(m, int64(len(packed)), int64(len(m.Data)), crc)...)
	for _, ext := range m.Ext {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(ext)))
		buf = append(buf, ext...)
		buf = binary.LittleEndian.AppendUint32(buf, CRC(ext))
	}
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	return append(buf, packed...)
}

// Build lays out prefix, an archive header, the members and the end marker.
func Build(prefix []byte, members ...Member) []byte {
	buf := bytes.Clone(prefix)
	buf = appendMember(buf, Member{Name: "TEST.ARJ", Comment: "made by a test", FileType: CommentHd, Data: []byte{}})
	for _, m := range members {
		buf = appendMember(buf, m)
	}
	return append(buf, 0x60, 0xea, 0, 0)
}

func Compress(method uint8, data []byte) []byte {
	switch method {
	case Stored:
		return data
	case Most, Medium, Fast:
		return EncodeLZH(data, 65535, true)
	case Fastest:
		return EncodeFastest(data)
	}
	panic("no encoder for method")
}

type lzToken struct {
	lit    byte
	length int // 0 for a literal
	dist   int // as coded: the match starts dist+1 bytes back
}

// lzParse is a greedy matcher over short hash chains.
func lzParse(data []byte, maxDist, maxLen int) []lzToken {
	var toks []lzToken
	chains := make(map[[3]byte][]int)
	insert := func(p int) {
		if p+3 <= len(data) {
			k := [3]byte(data[p:])
			chains[k] = append(chains[k], p)
		}
	}

	for i := 0; i < len(data); {
		bestLen, bestDist := 0, 0
		if i+3 <= len(data) && maxLen >= threshold {
			cands := chains[[3]byte(data[i:])]
			for k := len(cands) - 1; k >= 0 && k >= len(cands)-32; k-- {
				j := cands[k]
				d := i - j - 1
				if d >= maxDist {
					break
				}
				l := 0
				for l < maxLen && i+l < len(data) && data[j+l] == data[i+l] {
					l++
				}
				if l > bestLen {
					bestLen, bestDist = l, d
				}
			}
		}
		if bestLen >= threshold {
			toks = append(toks, lzToken{length: bestLen, dist: bestDist})
			for p := i; p < i+bestLen; p++ {
				insert(p)
			}
			i += bestLen
		} else {
			toks = append(toks, lzToken{lit: data[i]})
			insert(i)
			i++
		}
	}
	return toks
}

func EncodeFastest(data []byte) []byte {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	for _, tok := range lzParse(data, 512*15+8192, maxMatch) {
		if tok.length == 0 {
			WriteUnary(w, 0, lenStart, lenStop)
			w.WriteBits(uint64(tok.lit), 8)
			continue
		}
		WriteUnary(w, tok.length-threshold+1, lenStart, lenStop)
		WriteUnary(w, tok.dist, ptrStart, ptrStop)
	}
	w.Close()
	return buf.Bytes()
}

func WriteUnary(w *bitio.Writer, v, start, stop int) {
	plus, width := 0, start
	for width < stop && v-plus >= 1<<width {
		w.WriteBool(true)
		plus += 1 << width
		width++
	}
	if width < stop {
		w.WriteBool(false)
	}
	if v-plus >= 1<<width {
		panic("value too large for unary code")
	}
	if width > 0 {
		w.WriteBits(uint64(v-plus), uint8(width))
	}
}

// code is a canonical Huffman code, or a single symbol that costs no bits
type code struct {
	single int // -1 unless the table is uniform
	lens   []uint8
	codes  []uint16
}

func makeCode(freq []int, limit int) code {
	nonzero, last := 0, 0
	for i, f := range freq {
		if f > 0 {
			nonzero++
			last = i
		}
	}
	if nonzero <= 1 {
		return code{single: last}
	}
	lens := HuffLengths(freq, limit)
	return code{single: -1, lens: lens, codes: CanonicalCodes(lens)}
}

func (c code) put(w *bitio.Writer, sym int) {
	if c.single >= 0 {
		if sym != c.single {
			panic("symbol not in single-symbol table")
		}
		return
	}
	if c.lens[sym] == 0 {
		panic("symbol has no code")
	}
	w.WriteBits(uint64(c.codes[sym]), c.lens[sym])
}

// HuffLengths builds Huffman code lengths, flattening the frequencies until no code exceeds limit.
func HuffLengths(freq []int, limit int) []uint8 {
	freq = append([]int(nil), freq...)
	for {
		lens := huffmanDepths(freq)
		longest := uint8(0)
		for _, l := range lens {
			longest = max(longest, l)
		}
		if int(longest) <= limit {
			return lens
		}
		for i := range freq {
			if freq[i] > 0 {
				freq[i] = (freq[i] + 1) / 2
			}
		}
	}
}

func huffmanDepths(freq []int) []uint8 {
	type node struct{ weight, parent int }
	var nodes []node
	var live []int
	for _, f := range freq {
		nodes = append(nodes, node{weight: f, parent: -1})
		if f > 0 {
			live = append(live, len(nodes)-1)
		}
	}
	popMin := func() int {
		best := 0
		for i := range live {
			if nodes[live[i]].weight < nodes[live[best]].weight {
				best = i
			}
		}
		n := live[best]
		live = append(live[:best], live[best+1:]...)
		return n
	}
	for len(live) > 1 {
		a, b := popMin(), popMin()
		nodes = append(nodes, node{weight: nodes[a].weight + nodes[b].weight, parent: -1})
		nodes[a].parent, nodes[b].parent = len(nodes)-1, len(nodes)-1
		live = append(live, len(nodes)-1)
	}

	lens := make([]uint8, len(freq))
	for i, f := range freq {
		if f == 0 {
			continue
		}
		for p := nodes[i].parent; p >= 0; p = nodes[p].parent {
			lens[i]++
		}
	}
	return lens
}

func CanonicalCodes(lens []uint8) []uint16 {
	var count [maxCodeLen + 1]int
	for _, l := range lens {
		if l > 0 {
			count[l]++
		}
	}
	var next [maxCodeLen + 1]int
	c := 0
	for l := 1; l <= maxCodeLen; l++ {
		c = (c + count[l-1]) << 1
		next[l] = c
	}
	codes := make([]uint16, len(lens))
	for sym, l := range lens {
		if l > 0 {
			codes[sym] = uint16(next[l])
			next[l]++
		}
	}
	return codes
}

func distClass(d int) int { return bits.Len(uint(d)) }

func EncodeLZH(data []byte, blockSymbols int, matches bool) []byte {
	maxLen := maxMatch
	if !matches {
		maxLen = 0
	}
	toks := lzParse(data, dicSize-maxMatch, maxLen)

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	for len(toks) > 0 {
		n := min(len(toks), blockSymbols)
		writeBlock(w, toks[:n])
		toks = toks[n:]
	}
	w.Close()
	return buf.Bytes()
}

type tSym struct{ sym, extra, width int }

func writeBlock(w *bitio.Writer, toks []lzToken) {
	cfreq := make([]int, nc)
	pfreq := make([]int, np)
	for _, tok := range toks {
		if tok.length == 0 {
			cfreq[tok.lit]++
		} else {
			cfreq[tok.length+256-threshold]++
			pfreq[distClass(tok.dist)]++
		}
	}
	c := makeCode(cfreq, maxCodeLen)
	p := makeCode(pfreq, maxCodeLen)

	// the c lengths as a stream of code-length symbols
	var tsyms []tSym
	if c.single < 0 {
		n := lastNonzero(c.lens) + 1
		for i := 0; i < n; {
			if c.lens[i] != 0 {
				tsyms = append(tsyms, tSym{sym: int(c.lens[i]) + 2})
				i++
				continue
			}
			run := 0
			for i+run < n && c.lens[i+run] == 0 {
				run++
			}
			i += run
			for run > 0 {
				switch {
				case run >= 20:
					take := min(run, 20+511)
					tsyms = append(tsyms, tSym{2, take - 20, cbit})
					run -= take
				case run >= 3:
					take := min(run, 18)
					tsyms = append(tsyms, tSym{1, take - 3, 4})
					run -= take
				default:
					tsyms = append(tsyms, tSym{sym: 0})
					run--
				}
			}
		}
	}
	tfreq := make([]int, nt)
	for _, s := range tsyms {
		tfreq[s.sym]++
	}
	t := makeCode(tfreq, maxCodeLen)

	w.WriteBits(uint64(len(toks)&0xffff), codeBit)
	writePTLengths(w, t, tbit, 3)
	if c.single >= 0 {
		w.WriteBits(0, cbit)
		w.WriteBits(uint64(c.single), cbit)
	} else {
		w.WriteBits(uint64(lastNonzero(c.lens)+1), cbit)
		for _, s := range tsyms {
			t.put(w, s.sym)
			if s.width > 0 {
				w.WriteBits(uint64(s.extra), uint8(s.width))
			}
		}
	}
	writePTLengths(w, p, pbit, -1)

	for _, tok := range toks {
		if tok.length == 0 {
			c.put(w, int(tok.lit))
			continue
		}
		c.put(w, tok.length+256-threshold)
		class := distClass(tok.dist)
		p.put(w, class)
		if class > 1 {
			w.WriteBits(uint64(tok.dist-1<<(class-1)), uint8(class-1))
		}
	}
}

func writePTLengths(w *bitio.Writer, c code, nbit, special int) {
	if c.single >= 0 {
		w.WriteBits(0, uint8(nbit))
		w.WriteBits(uint64(c.single), uint8(nbit))
		return
	}
	n := lastNonzero(c.lens) + 1
	w.WriteBits(uint64(n), uint8(nbit))
	for i := 0; i < n; {
		l := int(c.lens[i])
		if l < 7 {
			w.WriteBits(uint64(l), 3)
		} else {
			w.WriteBits(7, 3)
			for range l - 7 {
				w.WriteBool(true)
			}
			w.WriteBool(false)
		}
		i++
		if i == special {
			z := 0
			for z < 3 && i+z < n && c.lens[i+z] == 0 {
				z++
			}
			w.WriteBits(uint64(z), 2)
			i += z
		}
	}
}

func lastNonzero(lens []uint8) int {
	for i := len(lens) - 1; i >= 0; i-- {
		if lens[i] != 0 {
			return i
		}
	}
	return -1
}
