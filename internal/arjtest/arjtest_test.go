package arjtest

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHuffLengthsComplete(t *testing.T) {
	freqs := [][]int{
		{1, 1, 2, 4, 8, 16, 32, 64},
		{1 << 30, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{0, 5, 0, 5, 0},
	}
	for _, f := range freqs {
		lens := HuffLengths(f, maxCodeLen)
		kraft := 0
		for i, l := range lens {
			require.LessOrEqual(t, int(l), maxCodeLen)
			require.Equal(t, f[i] == 0, l == 0)
			if l > 0 {
				kraft += 1 << (maxCodeLen - l)
			}
		}
		require.Equal(t, 1<<maxCodeLen, kraft, "lengths %v", lens)
	}
}

func TestCanonicalCodes(t *testing.T) {
	require.Equal(t, []uint16{0b10, 0b0, 0b110, 0, 0b111}, CanonicalCodes([]uint8{2, 1, 3, 0, 3}))
}

func TestBuildLayout(t *testing.T) {
	arc := Build([]byte("stub"), Member{Name: "A", Data: []byte("xyz")})
	require.True(t, bytes.HasPrefix(arc, []byte("stub\x60\xea")))
	require.True(t, bytes.HasSuffix(arc, []byte("xyz\x60\xea\x00\x00")))

	// archive header, then the member header straight after its empty extended chain
	size := int(binary.LittleEndian.Uint16(arc[6:]))
	member := arc[4+4+size+4+2:]
	require.Equal(t, []byte{0x60, 0xea}, member[:2])
}
