package membercache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetAdd(t *testing.T) {
	c := New(slots * 100)
	k := Key{"A.ARJ", 100}
	_, ok := c.Get(k)
	require.False(t, ok)

	c.Add(k, []byte("hello"))
	got, ok := c.Get(k)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), got)
	require.Equal(t, 5, c.Bytes())

	_, ok = c.Get(Key{"B.ARJ", 100})
	require.False(t, ok)
}

func TestTooBig(t *testing.T) {
	c := New(slots * 10)
	k := Key{"A.ARJ", 0}
	c.Add(k, make([]byte, 11))
	_, ok := c.Get(k)
	require.False(t, ok)
}

func TestBudget(t *testing.T) {
	c := New(slots * 100)
	for i := range slots * 4 {
		c.Add(Key{"A.ARJ", int64(i)}, make([]byte, 100))
	}
	require.LessOrEqual(t, c.Bytes(), slots*100)
}

func TestNil(t *testing.T) {
	c := New(0)
	require.Nil(t, c)
	c.Add(Key{"A", 1}, []byte("x"))
	_, ok := c.Get(Key{"A", 1})
	require.False(t, ok)
	require.Zero(t, c.Bytes())
}
