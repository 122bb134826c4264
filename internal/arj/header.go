// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package arj

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"
)

const (
	headerID      = 0xea60
	firstHdrSize  = 30
	maxNameLen    = 512
	maxCommentLen = 2048
	maxHdrSize    = firstHdrSize + 10 + maxNameLen + maxCommentLen
)

// Host operating systems
const (
	MSDOS   = 0
	PRIMOS  = 1
	UNIX    = 2
	AMIGA   = 3
	MACOS   = 4
	OS2     = 5
	APPLEGS = 6
	ATARIST = 7
	NEXT    = 8
	VAXVMS  = 9
	WIN95   = 10
	WIN32   = 11
)

// Header is a basic header: the archive's own (the first one) or a member's.
type Header struct {
	Size       uint16 // of the payload, not counting id, size or CRC
	CRC        uint32
	FirstSize  uint8
	Version    uint8
	MinVersion uint8
	HostOS     uint8
	Flags      uint8
	Method     uint8
	FileType   uint8
	Modifier   uint8 // password modifier
	DOSTime    uint32
	Packed     int64
	Unpacked   int64
	FileCRC    uint32
	EntryPos   uint16
	FileMode   uint16
	HostData   uint16
	Name       string
	Comment    string

	Offset     int64 // of the header id
	DataOffset int64 // of the compressed payload, after any extended headers

	record []byte // id through CRC, exactly as read
}

// ModTime converts the DOS timestamp.
// In the archive header the same field is the creation time.
func (h *Header) ModTime() time.Time { return dosTime(h.DOSTime) }

func (h *Header) IsDir() bool { return h.FileType == Directory }

// Mode interprets FileMode according to the host that made the archive.
func (h *Header) Mode() fs.FileMode {
	mode := hostMode(h.HostOS, h.FileMode)
	if h.IsDir() {
		mode |= fs.ModeDir | 0o111
	}
	return mode
}

// Path is the member name as a slash-separated relative path,
// with undecodable bytes percent-escaped.
func (h *Header) Path() string {
	name := strings.ReplaceAll(h.Name, `\`, "/")
	name = strings.TrimLeft(name, "/")
	name = strings.TrimPrefix(name, "./")
	return unicode(name)
}

// Record returns the header bytes from the id through the CRC.
// [ParseHeader] turns them back into an identical Header.
func (h *Header) Record() []byte { return h.record }

// ReadHeader reads the member header at off.
//
// A header with size 0 marks the end of the archive: ReadHeader returns a nil Header
// and a nil error. Other malformed headers return [ErrFormat] or [ErrChecksum],
// and an unknown method returns [ErrMethod].
// The compressed data starts at DataOffset, after any extended headers.
func ReadHeader(r io.ReaderAt, off int64) (*Header, error) {
	return readHeader(r, off, true)
}

// ReadMainHeader reads the archive header, which shares the member layout
// but uses the size fields for other purposes, so they are not checked.
func ReadMainHeader(r io.ReaderAt, off int64) (*Header, error) {
	h, err := readHeader(r, off, false)
	if err == nil && h == nil {
		err = fmt.Errorf("%w: archive has no main header", ErrFormat)
	}
	return h, err
}

func readHeader(r io.ReaderAt, off int64, member bool) (*Header, error) {
	var idsize [4]byte
	if err := readAt(r, idsize[:], off); err != nil {
		return nil, err
	}
	if id := binary.LittleEndian.Uint16(idsize[:]); id != headerID {
		return nil, fmt.Errorf("%w: bad header id %#04x at %d", ErrFormat, id, off)
	}
	size := int(binary.LittleEndian.Uint16(idsize[2:]))
	if size == 0 {
		return nil, nil
	}
	if size > maxHdrSize {
		return nil, fmt.Errorf("%w: header size %d at %d", ErrFormat, size, off)
	}

	record := make([]byte, 4+size+4)
	copy(record, idsize[:])
	if err := readAt(r, record[4:], off+4); err != nil {
		return nil, err
	}

	h, err := parseRecord(record, member)
	if err != nil {
		return nil, fmt.Errorf("%w (header at %d)", err, off)
	}
	h.Offset = off

	// Extended headers are skipped over, their CRCs are not checked
	pos := off + int64(len(record))
	for {
		var ext [2]byte
		if err := readAt(r, ext[:], pos); err != nil {
			return nil, err
		}
		pos += 2
		extSize := binary.LittleEndian.Uint16(ext[:])
		if extSize == 0 {
			break
		}
		pos += int64(extSize) + 4
	}
	h.DataOffset = pos
	return h, nil
}

// ParseHeader decodes a record previously returned by [Header.Record].
// The offsets are not part of the record and must be supplied.
// Only the CRC is checked, so archive headers are accepted too.
func ParseHeader(record []byte, offset, dataOffset int64) (*Header, error) {
	if len(record) < 8 || binary.LittleEndian.Uint16(record) != headerID ||
		int(binary.LittleEndian.Uint16(record[2:]))+8 != len(record) {
		return nil, ErrFormat
	}
	h, err := parseRecord(bytes.Clone(record), false)
	if err != nil {
		return nil, err
	}
	h.Offset, h.DataOffset = offset, dataOffset
	return h, nil
}

func parseRecord(record []byte, member bool) (*Header, error) {
	payload := record[4 : len(record)-4]
	want := binary.LittleEndian.Uint32(record[len(record)-4:])
	if got := CRC(payload); got != want {
		return nil, fmt.Errorf("%w: header CRC is %08x, stored %08x", ErrChecksum, got, want)
	}
	if len(payload) < firstHdrSize {
		return nil, fmt.Errorf("%w: header size %d", ErrFormat, len(payload))
	}

	h := &Header{
		Size:       uint16(len(payload)),
		CRC:        want,
		FirstSize:  payload[0],
		Version:    payload[1],
		MinVersion: payload[2],
		HostOS:     payload[3],
		Flags:      payload[4],
		Method:     payload[5],
		FileType:   payload[6],
		Modifier:   payload[7],
		DOSTime:    binary.LittleEndian.Uint32(payload[8:]),
		Packed:     int64(int32(binary.LittleEndian.Uint32(payload[12:]))),
		Unpacked:   int64(int32(binary.LittleEndian.Uint32(payload[16:]))),
		FileCRC:    binary.LittleEndian.Uint32(payload[20:]),
		EntryPos:   binary.LittleEndian.Uint16(payload[24:]),
		FileMode:   binary.LittleEndian.Uint16(payload[26:]),
		HostData:   binary.LittleEndian.Uint16(payload[28:]),
		record:     record,
	}
	if member {
		if h.Packed < 0 || h.Unpacked < 0 {
			return nil, fmt.Errorf("%w: negative file size", ErrFormat)
		}
		if h.Method >= nMethods {
			return nil, fmt.Errorf("%w: %d", ErrMethod, h.Method)
		}
	}

	var strs []byte
	if int(h.FirstSize) < len(payload) {
		strs = payload[h.FirstSize:]
	}
	h.Name, strs = cString(strs, maxNameLen)
	h.Comment, _ = cString(strs, maxCommentLen)
	return h, nil
}

// cString returns the text before the first NUL (at most max-1 bytes) and what follows the NUL.
func cString(b []byte, max int) (string, []byte) {
	end := bytes.IndexByte(b, 0)
	rest := b[end+1:]
	if end < 0 {
		end, rest = len(b), nil
	}
	return string(b[:min(end, max-1)]), rest
}

func readAt(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, fs.ErrInvalid) {
		return fmt.Errorf("%w: truncated at %d", ErrFormat, off+int64(n))
	}
	return err
}
