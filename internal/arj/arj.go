// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package arj reads archives made by Robert Jung's ARJ.
//
// Headers are located and CRC-checked by [FindArchiveStart] and [ReadHeader].
// Member contents are reconstructed in full by [Decompress]:
// methods 1 to 3 share a canonical Huffman LZSS codec,
// method 4 is a table-free LZSS variant with unary-prefixed codes.
package arj

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sync"
)

var (
	ErrFormat   = errors.New("not an ARJ archive")
	ErrNotFound = errors.New("ARJ archive signature not found")
	ErrChecksum = errors.New("ARJ checksum mismatch")
	ErrCorrupt  = errors.New("corrupt ARJ compressed data")
	ErrMethod   = errors.New("unimplemented ARJ compression method")
	ErrPassword = errors.New("garbled (password protected) ARJ member")
)

// Compression methods
const (
	Stored   = 0
	Most     = 1
	Medium   = 2
	Fast     = 3
	Fastest  = 4
	nMethods = 5
)

// File types
const (
	Binary    = 0
	Text      = 1
	CommentHd = 2
	Directory = 3
	Label     = 4
	Chapter   = 5
)

// Header flags
const (
	FlagGarbled = 0x01
	FlagVolume  = 0x04
	FlagExtFile = 0x08
	FlagPathSym = 0x10
	FlagBackup  = 0x20
)

// crcTable is built on first use and never changes afterwards.
var crcTable = sync.OnceValue(func() *crc32.Table {
	return crc32.MakeTable(crc32.IEEE)
})

// CRC returns the ARJ checksum of buf, which is the common CRC-32.
func CRC(buf []byte) uint32 {
	return crc32.Checksum(buf, crcTable())
}

// Decompress reconstructs the whole content of a member into a new buffer.
// The compressed payload is read from r starting at h.DataOffset.
//
// Errors from a corrupt stream are confined to this call.
// The returned buffer is nil whenever err is non-nil.
func Decompress(r io.ReaderAt, h *Header) ([]byte, error) {
	if h.Flags&FlagGarbled != 0 {
		return nil, ErrPassword
	}
	if h.Unpacked < 0 || h.Packed < 0 {
		return nil, ErrFormat
	}

	src := io.NewSectionReader(r, h.DataOffset, h.Packed)
	dst := make([]byte, h.Unpacked)

	var err error
	switch h.Method {
	case Stored:
		var n int
		n, err = io.ReadFull(src, dst)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			err = fmt.Errorf("%w: stored member truncated after %d of %d bytes", ErrFormat, n, len(dst))
		}
	case Most, Medium, Fast:
		err = decodeLZH(src, h.Packed, dst)
	case Fastest:
		err = decodeFastest(src, h.Packed, dst)
	default:
		err = fmt.Errorf("%w: %d", ErrMethod, h.Method)
	}
	if err != nil {
		return nil, err
	}

	if got := CRC(dst); got != h.FileCRC {
		return nil, fmt.Errorf("%w: %q content is %08x, header says %08x", ErrChecksum, h.Name, got, h.FileCRC)
	}
	return dst, nil
}
