package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/localfs"
	"xdao.co/docreg/storage/testkit"
	"xdao.co/docreg/storage/unixfs"
)

type flakyCAS struct {
	storage.CAS
	err error
}

func (f flakyCAS) Get(context.Context, cid.Cid) ([]byte, error) { return nil, f.err }

type slowCAS struct{ storage.CAS }

func (slowCAS) Get(ctx context.Context, _ cid.Cid) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowCAS) Put(ctx context.Context, _ []byte) (cid.Cid, error) {
	<-ctx.Done()
	return cid.Undef, ctx.Err()
}

type lyingCAS struct{ storage.CAS }

func (lyingCAS) Put(ctx context.Context, _ []byte) (cid.Cid, error) {
	return cidutil.ComputeBytes([]byte("something else"))
}

func newLocal(t *testing.T) storage.CAS {
	t.Helper()
	c, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	return c
}

func TestMultiCASConformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.MultiCAS{Adapters: []storage.CAS{unixfs.NewMemory(), newLocal(t)}}
	})
}

func TestReplicatingCASConformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.ReplicatingCAS{Backends: []storage.NamedCAS{
			{Name: "mem", CAS: unixfs.NewMemory()},
			{Name: "disk", CAS: newLocal(t)},
		}}
	})
}

func TestMultiCASFallsBackPastUnavailable(t *testing.T) {
	ctx := context.Background()
	second := unixfs.NewMemory()
	id, err := second.Put(ctx, []byte("fallback"))
	require.NoError(t, err)

	m := storage.MultiCAS{Adapters: []storage.CAS{
		flakyCAS{CAS: unixfs.NewMemory(), err: storage.ErrUnavailable},
		second,
	}}
	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "fallback", string(got))

	missing, err := cidutil.ComputeBytes([]byte("nowhere"))
	require.NoError(t, err)
	_, err = m.Get(ctx, missing)
	require.True(t, storage.IsUnavailable(err), "unavailable must not collapse to not-found: %v", err)
}

func TestMultiCASStopsOnHardError(t *testing.T) {
	boom := errors.New("disk on fire")
	m := storage.MultiCAS{Adapters: []storage.CAS{
		flakyCAS{CAS: unixfs.NewMemory(), err: boom},
		unixfs.NewMemory(),
	}}
	_, err := m.Get(context.Background(), cid.Undef)
	require.ErrorIs(t, err, boom)
}

func TestReplicatingPutAllReportsPerBackend(t *testing.T) {
	r := storage.ReplicatingCAS{Backends: []storage.NamedCAS{
		{Name: "a", CAS: unixfs.NewMemory()},
		{Name: "b", CAS: newLocal(t)},
	}}
	id, per, err := r.PutAll(context.Background(), []byte("replicated"))
	require.NoError(t, err)
	require.Len(t, per, 2)
	require.True(t, per["a"].Equals(id))
	require.True(t, per["b"].Equals(id))

	bad := storage.ReplicatingCAS{Backends: []storage.NamedCAS{
		{Name: "ok", CAS: unixfs.NewMemory()},
		{Name: "liar", CAS: lyingCAS{CAS: unixfs.NewMemory()}},
	}}
	_, _, err = bad.PutAll(context.Background(), []byte("replicated"))
	require.ErrorIs(t, err, storage.ErrCIDMismatch)
}

func TestAddresserStoreRejectsForeignIdentifier(t *testing.T) {
	a := storage.Addresser{CAS: lyingCAS{CAS: unixfs.NewMemory()}}
	_, err := a.Store(context.Background(), []byte("payload"))
	require.ErrorIs(t, err, storage.ErrCIDMismatch)
}

func TestAddresserFetchTimeoutIsNotFound(t *testing.T) {
	a := storage.Addresser{CAS: slowCAS{CAS: unixfs.NewMemory()}, Timeout: 20 * time.Millisecond}
	id, err := a.IdentifierOnly([]byte("never arrives"))
	require.NoError(t, err)

	_, err = a.Fetch(context.Background(), id)
	require.True(t, storage.IsNotFound(err), "got %v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Fetch(ctx, id)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAddresserStoreTimeout(t *testing.T) {
	a := storage.Addresser{CAS: slowCAS{CAS: unixfs.NewMemory()}, Timeout: 20 * time.Millisecond}

	_, err := a.Store(context.Background(), []byte("slow"))
	require.True(t, storage.IsUnavailable(err), "got %v", err)

	// The caller's own deadline is not the backend's fault.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	a.Timeout = time.Minute
	_, err = a.Store(ctx, []byte("slow"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, storage.IsUnavailable(err))
}

func TestAddresserFetchUndefined(t *testing.T) {
	a := storage.Addresser{CAS: unixfs.NewMemory()}
	_, err := a.Fetch(context.Background(), cid.Undef)
	require.ErrorIs(t, err, storage.ErrInvalidCID)
}
