package source

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, s *Source) []byte {
	t.Helper()
	buf, err := io.ReadAll(io.NewSectionReader(s, 0, s.Size))
	require.NoError(t, err)
	return buf
}

func TestOpen(t *testing.T) {
	want, err := os.ReadFile("testdata/hello.txt")
	require.NoError(t, err)

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	w.Write(want)
	w.Close()
	gzName := filepath.Join(t.TempDir(), "HELLO.TXT.GZ")
	require.NoError(t, os.WriteFile(gzName, gz.Bytes(), 0o644))

	cases := []struct {
		path, name, filter string
	}{
		{"testdata/hello.txt", "hello.txt", ""},
		{"testdata/hello.txt.xz", "hello.txt", "xz"},
		{gzName, "HELLO.TXT", "gzip"},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			s, err := Open(c.path)
			require.NoError(t, err)
			defer s.Close()
			require.Equal(t, c.name, s.Name)
			require.Equal(t, c.filter, s.Filter)
			require.EqualValues(t, len(want), s.Size)
			require.Equal(t, want, readAll(t, s))

			n, err := s.ReadAt(make([]byte, 4), s.Size+10)
			require.Zero(t, n)
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestOpenBadGzip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "BAD.GZ")
	require.NoError(t, os.WriteFile(name, []byte("\x1f\x8bnot really gzip"), 0o644))
	_, err := Open(name)
	require.Error(t, err)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
