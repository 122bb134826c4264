package arj

import (
	"bytes"
	_ "embed"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// GOLDEN.ARJ is assembled field by field from the format, not by the encoders in arjtest.
// GOLDEN.EXE is the same archive behind a 306-byte stub holding a stray signature.
//
//go:embed testdata/GOLDEN.ARJ
var goldenArj []byte

//go:embed testdata/GOLDEN.EXE
var goldenExe []byte

const goldenStub = 306

// One method 1-3 block of 4 symbols: 'a', (len 3, distance 0), 'b', (len 4, distance 4).
//
//	0004                 symbol count
//	00101 000 000 001 01 001
//	                     t lengths: 5 of them, a zero run of 1 after index 2
//	100000010 0 001001101 1 1 0 010001001 1 1
//	                     c lengths: 258, coded as 97 zeros, 2, 2, 157 zeros, 2, 2
//	01001 001 010 011 100 101 110 1110 11110 11110
//	                     p lengths: 1 to 8 and 8, the last three using the 7 escape
//	00 10 0 01 11 1110 00
//	                     'a', len 3, class 0, 'b', len 4, class 3 with extra bits 00
const goldenLZH = "00042805302137227494e5ddef11f8"

var goldenMembers = []struct {
	name   string
	method uint8
	data   []byte
	crc    uint32
}{
	{"STORED.TXT", Stored, []byte("Stored member.\r\n"), 0xf37ca0a5},
	{"M1.TXT", Most, []byte("aaaabaaaa"), 0x3017a4b6},
	{"M2.TXT", Medium, []byte("aaaabaaaa"), 0x3017a4b6},
	{"SUB/M3.TXT", Fast, []byte("aaaabaaaa"), 0x3017a4b6},
	// literals and matches, 31 maximal lengths, a pointer at full width and one at width 10
	{"M4.DAT", Fastest, []byte("ZZZZ" + strings.Repeat("q", 7937) + "R" + "ZZZZq" + "qqqq"), 0x55ff779b},
}

func TestGoldenBlock(t *testing.T) {
	stream, err := hex.DecodeString(goldenLZH)
	require.NoError(t, err)
	dst := make([]byte, 9)
	require.NoError(t, decodeLZH(bytes.NewReader(stream), int64(len(stream)), dst))
	require.Equal(t, "aaaabaaaa", string(dst))
}

func TestGoldenArchive(t *testing.T) {
	for _, tc := range []struct {
		file  string
		arc   []byte
		start int64
	}{
		{"GOLDEN.ARJ", goldenArj, 0},
		{"GOLDEN.EXE", goldenExe, goldenStub},
	} {
		t.Run(tc.file, func(t *testing.T) {
			r := bytes.NewReader(tc.arc)
			start, err := FindArchiveStart(r, 0, int64(len(tc.arc)))
			require.NoError(t, err)
			require.Equal(t, tc.start, start)

			main, members, err := Scan(r, start)
			require.NoError(t, err)
			require.Equal(t, "GOLDEN.ARJ", main.Name)
			require.Equal(t, "hand assembled", main.Comment)
			require.EqualValues(t, 34, main.FirstSize)
			require.Len(t, members, len(goldenMembers))

			for i, want := range goldenMembers {
				h := members[i]
				require.Equal(t, want.name, h.Path())
				require.Equal(t, want.method, h.Method)
				require.Equal(t, want.crc, h.FileCRC)
				require.Equal(t, time.Date(1997, time.March, 14, 15, 9, 26, 0, time.UTC), h.ModTime())

				got, err := Decompress(r, h)
				require.NoError(t, err, want.name)
				require.Equal(t, want.data, got, want.name)
				require.Equal(t, want.crc, CRC(got))
			}
			require.EqualValues(t, 46, members[2].FirstSize)
		})
	}
}
