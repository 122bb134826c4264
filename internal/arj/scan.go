package arj

import (
	"encoding/binary"
	"io"
)

// SearchLimit bounds how far [FindArchiveStart] looks past a self-extractor stub.
// It is MAXSFX from ARJ's own extractor, larger than any stub ARJ ships.
const SearchLimit = 25000

// FindArchiveStart returns the offset of the first plausible archive header at or after from.
// A plausible header has the signature, a sane size and a matching CRC,
// so a stray signature inside executable code is passed over.
// Returns [ErrNotFound] if none starts within SearchLimit bytes.
func FindArchiveStart(r io.ReaderAt, from, size int64) (int64, error) {
	end := min(size-2, from+SearchLimit) // last candidate is end-1
	if end <= from {
		return -1, ErrNotFound
	}

	buf := make([]byte, end-from+1)
	n, err := r.ReadAt(buf, from)
	if n < len(buf) && err != nil && err != io.EOF {
		return -1, err
	}
	buf = buf[:n]

	for i := 0; i+1 < len(buf); i++ {
		if buf[i] != headerID&0xff || buf[i+1] != headerID>>8 {
			continue
		}
		if pos := from + int64(i); plausibleHeader(r, pos) {
			return pos, nil
		}
	}
	return -1, ErrNotFound
}

func plausibleHeader(r io.ReaderAt, pos int64) bool {
	var sz [2]byte
	if readAt(r, sz[:], pos+2) != nil {
		return false
	}
	size := int(binary.LittleEndian.Uint16(sz[:]))
	if size == 0 || size > maxHdrSize {
		return false
	}
	buf := make([]byte, size+4)
	if readAt(r, buf, pos+4) != nil {
		return false
	}
	return CRC(buf[:size]) == binary.LittleEndian.Uint32(buf[size:])
}

// Scan reads the archive header at start, then every member header after it.
// It stops at the end marker, returning a nil error,
// or at the first bad header, returning the members found so far along with the error.
func Scan(r io.ReaderAt, start int64) (main *Header, members []*Header, err error) {
	main, err = ReadMainHeader(r, start)
	if err != nil {
		return nil, nil, err
	}
	off := main.DataOffset
	for {
		h, err := ReadHeader(r, off)
		if err != nil {
			return main, members, err
		}
		if h == nil {
			return main, members, nil
		}
		members = append(members, h)
		off = h.DataOffset + h.Packed
	}
}
