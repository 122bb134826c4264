package indexcache

import (
	"bytes"
	"testing"

	"github.com/elliotnunn/arjfs/internal/arj"
	"github.com/elliotnunn/arjfs/internal/arjtest"
	"github.com/elliotnunn/arjfs/internal/fileid"
	"github.com/stretchr/testify/require"
)

func scanned(t *testing.T) *Entry {
	t.Helper()
	arc := arjtest.Build([]byte("SFX"),
		arjtest.Member{Name: "ONE.TXT", Data: []byte("one")},
		arjtest.Member{Name: `SUB\TWO.TXT`, Data: bytes.Repeat([]byte("two "), 100), Method: arjtest.Most},
	)
	r := bytes.NewReader(arc)
	start, err := arj.FindArchiveStart(r, 0, r.Size())
	require.NoError(t, err)
	main, members, err := arj.Scan(r, start)
	require.NoError(t, err)
	return &Entry{Start: start, Main: main, Members: members}
}

func TestPutGet(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	defer c.Close()

	id := fileid.ID{1, 2, 3}
	_, ok := c.Get(id)
	require.False(t, ok)

	want := scanned(t)
	want.Stopped = "bad header"
	require.NoError(t, c.Put(id, want))

	got, ok := c.Get(id)
	require.True(t, ok)
	require.Equal(t, want, got)

	_, ok = c.Get(fileid.ID{9})
	require.False(t, ok)

	require.NoError(t, c.Delete(id))
	_, ok = c.Get(id)
	require.False(t, ok)
}

func TestPersistent(t *testing.T) {
	dir := t.TempDir()
	id := fileid.ID{7}
	want := scanned(t)

	c, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c.Put(id, want))
	require.NoError(t, c.Close())

	c, err = Open(dir)
	require.NoError(t, err)
	defer c.Close()
	got, ok := c.Get(id)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestDecodeRejects(t *testing.T) {
	good := encode(scanned(t))
	cases := map[string][]byte{
		"empty":     nil,
		"version":   append([]byte{99}, good[1:]...),
		"truncated": good[:len(good)-3],
		"trailing":  append(bytes.Clone(good), 0),
	}
	for name, b := range cases {
		_, err := decode(b)
		require.Error(t, err, name)
	}

	corrupt := bytes.Clone(good)
	corrupt[len(corrupt)-20] ^= 0xff
	_, err := decode(corrupt)
	require.ErrorIs(t, err, arj.ErrChecksum)
}
