package arj

import (
	"bytes"
	"io/fs"
	"testing"
	"time"

	"github.com/elliotnunn/arjfs/internal/arjtest"
	"github.com/stretchr/testify/require"
)

func threeMembers() []arjtest.Member {
	return []arjtest.Member{
		{Name: "A.TXT", Data: bytes.Repeat([]byte("a"), 10)},
		{Name: `DIR\B.BIN`, Data: bytes.Repeat([]byte("0123456789"), 20), Comment: "second"},
		{Name: "C.DAT", Data: bytes.Repeat([]byte("xyz\n"), 1250), Method: Fastest},
	}
}

func TestScan(t *testing.T) {
	arc := arjtest.Build(nil, threeMembers()...)
	r := bytes.NewReader(arc)

	start, err := FindArchiveStart(r, 0, int64(len(arc)))
	require.NoError(t, err)
	require.Zero(t, start)

	main, members, err := Scan(r, start)
	require.NoError(t, err)
	require.Equal(t, "TEST.ARJ", main.Name)
	require.Equal(t, "made by a test", main.Comment)
	require.Len(t, members, 3)

	for i, m := range threeMembers() {
		h := members[i]
		require.Equal(t, m.Name, h.Name)
		require.EqualValues(t, len(m.Data), h.Unpacked)
		got, err := Decompress(r, h)
		require.NoError(t, err)
		require.Equal(t, m.Data, got)
	}
	require.Equal(t, "DIR/B.BIN", members[1].Path())
	require.Equal(t, "second", members[1].Comment)
	require.Equal(t, arjtest.ModTime, members[0].ModTime())
}

func TestFindArchiveStartAfterStub(t *testing.T) {
	stub := bytes.Repeat([]byte("MZ stub code "), 100)
	stub = append(stub, 0x60, 0xea, 0x10, 0x00) // signature with a bad CRC behind it
	stub = append(stub, make([]byte, 40)...)
	arc := arjtest.Build(stub, threeMembers()...)
	r := bytes.NewReader(arc)

	start, err := FindArchiveStart(r, 0, int64(len(arc)))
	require.NoError(t, err)
	require.EqualValues(t, len(stub), start)

	_, members, err := Scan(r, start)
	require.NoError(t, err)
	require.Len(t, members, 3)
}

func TestFindArchiveStartMissing(t *testing.T) {
	junk := bytes.Repeat([]byte{0x60, 0xea, 0xff}, 1000)
	_, err := FindArchiveStart(bytes.NewReader(junk), 0, int64(len(junk)))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = FindArchiveStart(bytes.NewReader(nil), 0, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindArchiveStartLimit(t *testing.T) {
	require.EqualValues(t, 25000, SearchLimit)

	arc := arjtest.Build(make([]byte, SearchLimit-1), threeMembers()...)
	start, err := FindArchiveStart(bytes.NewReader(arc), 0, int64(len(arc)))
	require.NoError(t, err)
	require.EqualValues(t, SearchLimit-1, start)

	for _, stub := range []int{SearchLimit, SearchLimit + 10} {
		arc := arjtest.Build(make([]byte, stub), threeMembers()...)
		_, err := FindArchiveStart(bytes.NewReader(arc), 0, int64(len(arc)))
		require.ErrorIs(t, err, ErrNotFound, "stub of %d bytes", stub)
	}
}

func TestEndMarker(t *testing.T) {
	h, err := ReadHeader(bytes.NewReader([]byte{0x60, 0xea, 0, 0}), 0)
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestHeaderBitFlip(t *testing.T) {
	arc := arjtest.Build(nil, threeMembers()[0])
	main, err := ReadMainHeader(bytes.NewReader(arc), 0)
	require.NoError(t, err)

	// every bit of the first member's payload and CRC
	first := main.DataOffset
	size := int64(len(members(t, arc)[0].Record()))
	for off := first + 4; off < first+size; off++ {
		for bit := range 8 {
			bad := bytes.Clone(arc)
			bad[off] ^= 1 << bit
			_, err := ReadHeader(bytes.NewReader(bad), first)
			require.ErrorIs(t, err, ErrChecksum, "flip bit %d of byte %d", bit, off)
		}
	}
}

func members(t *testing.T, arc []byte) []*Header {
	t.Helper()
	_, m, err := Scan(bytes.NewReader(arc), 0)
	require.NoError(t, err)
	return m
}

func TestScanStopsAtBadHeader(t *testing.T) {
	arc := arjtest.Build(nil, threeMembers()...)
	hs := members(t, arc)
	bad := bytes.Clone(arc)
	bad[hs[2].Offset+10] ^= 0xff

	_, got, err := Scan(bytes.NewReader(bad), 0)
	require.ErrorIs(t, err, ErrChecksum)
	require.Len(t, got, 2)
}

func TestBadHeaders(t *testing.T) {
	cases := []struct {
		name string
		arc  []byte
		err  error
	}{
		{"bad id", []byte{0x61, 0xea, 0x10, 0}, ErrFormat},
		{"too big", []byte{0x60, 0xea, 0xff, 0xff}, ErrFormat},
		{"truncated", []byte{0x60, 0xea, 0x30, 0, 1, 2, 3}, ErrFormat},
		{"short", []byte{0x60}, ErrFormat},
		{"unknown method", arjtest.HeaderRecord(arjtest.Member{Name: "X", Method: 9}, 0, 0, 0), ErrMethod},
		{"negative size", arjtest.HeaderRecord(arjtest.Member{Name: "X"}, -5, 0, 0), ErrFormat},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ReadHeader(bytes.NewReader(append(c.arc, 0, 0)), 0)
			require.ErrorIs(t, err, c.err)
		})
	}
}

func TestExtendedHeadersSkipped(t *testing.T) {
	m := arjtest.Member{Name: "EXT", Data: []byte("payload"), Ext: [][]byte{[]byte("one"), bytes.Repeat([]byte{9}, 300)}}
	arc := arjtest.Build(nil, m, arjtest.Member{Name: "NEXT", Data: []byte("more")})
	hs := members(t, arc)
	require.Len(t, hs, 2)

	got, err := Decompress(bytes.NewReader(arc), hs[0])
	require.NoError(t, err)
	require.Equal(t, m.Data, got)
}

func TestParseHeaderRecord(t *testing.T) {
	arc := arjtest.Build(nil, threeMembers()...)
	for _, h := range members(t, arc) {
		again, err := ParseHeader(h.Record(), h.Offset, h.DataOffset)
		require.NoError(t, err)
		require.Equal(t, h, again)
	}
	_, err := ParseHeader([]byte{1, 2, 3}, 0, 0)
	require.ErrorIs(t, err, ErrFormat)
}

func TestHeaderMode(t *testing.T) {
	cases := []struct {
		m    arjtest.Member
		mode fs.FileMode
	}{
		{arjtest.Member{HostOS: MSDOS, Mode: 0x20}, 0o666},
		{arjtest.Member{HostOS: MSDOS, Mode: 0x01}, 0o444},
		{arjtest.Member{HostOS: UNIX, Mode: 0o100755}, 0o755},
		{arjtest.Member{HostOS: MSDOS, FileType: Directory, Mode: 0x10}, fs.ModeDir | 0o777},
		{arjtest.Member{HostOS: WIN32, Mode: 0x11}, fs.ModeDir | 0o555},
		{arjtest.Member{HostOS: UNIX, Mode: 0o120777}, fs.ModeSymlink | 0o777},
		{arjtest.Member{HostOS: UNIX, Mode: 0o104755}, fs.ModeSetuid | 0o755},
		{arjtest.Member{HostOS: UNIX, Mode: 0o041777}, fs.ModeDir | fs.ModeSticky | 0o777},
		{arjtest.Member{HostOS: NEXT, Mode: 0o060640}, fs.ModeDevice | 0o640},
		{arjtest.Member{HostOS: NEXT, Mode: 0o020600}, fs.ModeDevice | fs.ModeCharDevice | 0o600},
	}
	for _, c := range cases {
		h, err := ParseHeader(arjtest.HeaderRecord(c.m, 0, 0, 0), 0, 0)
		require.NoError(t, err)
		require.Equal(t, c.mode, h.Mode(), "host %d mode %#o", c.m.HostOS, c.m.Mode)
	}
}

func TestModTime(t *testing.T) {
	cases := map[uint32]time.Time{
		0x226e792d: time.Date(1997, time.March, 14, 15, 9, 26, 0, time.UTC),
		0x00210000: time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC),
		0xff9fbf7d: time.Date(2107, time.December, 31, 23, 59, 58, 0, time.UTC),
	}
	for stamp, want := range cases {
		require.Equal(t, want, (&Header{DOSTime: stamp}).ModTime(), "%#08x", stamp)
	}
}

func TestPath(t *testing.T) {
	cases := map[string]string{
		`A\B\C.TXT`:  "A/B/C.TXT",
		`\ROOT.TXT`:  "ROOT.TXT",
		"./rel/x":    "rel/x",
		"plain":      "plain",
		"caf\xe9.txt": "caf%e9.txt",
	}
	for name, want := range cases {
		require.Equal(t, want, (&Header{Name: name}).Path(), name)
	}
}
