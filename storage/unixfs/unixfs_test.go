package unixfs

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/testkit"
)

func TestMemoryConformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return NewMemory()
	})
}

func TestBadgerConformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		c, err := OpenBadger(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	})
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	payload := bytes.Repeat([]byte("persist"), cidutil.ChunkSize/3)

	c, err := OpenBadger(dir)
	require.NoError(t, err)
	id, err := c.Put(ctx, payload)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = OpenBadger(dir)
	require.NoError(t, err)
	defer c.Close()
	got, err := c.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestIdentifierOnlyMatchesStore(t *testing.T) {
	ctx := context.Background()
	a := storage.Addresser{CAS: NewMemory()}
	for _, size := range []int{0, 1, cidutil.ChunkSize - 1, cidutil.ChunkSize, cidutil.ChunkSize + 1, 3 * cidutil.ChunkSize} {
		payload := bytes.Repeat([]byte{byte(size)}, size)
		want, err := a.IdentifierOnly(payload)
		require.NoError(t, err)
		got, err := a.Store(ctx, payload)
		require.NoError(t, err, "size %d", size)
		require.True(t, want.Equals(got), "size %d", size)

		back, err := a.Fetch(ctx, got)
		require.NoError(t, err)
		require.True(t, bytes.Equal(payload, back), "size %d", size)
	}
}
