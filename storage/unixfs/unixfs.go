// Package unixfs stores payloads as UnixFS DAGs in an IPFS block store, the
// same layout a Kubo node produces, so identifiers match cidutil.Compute and
// the blocks can be served to the wider network unchanged.
package unixfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ipfs/boxo/blockservice"
	"github.com/ipfs/boxo/blockstore"
	"github.com/ipfs/boxo/ipld/merkledag"
	uio "github.com/ipfs/boxo/ipld/unixfs/io"
	"github.com/ipfs/go-cid"
	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	badgerds "github.com/ipfs/go-ds-badger2"
	ipld "github.com/ipfs/go-ipld-format"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/storage"
)

// CAS is a storage.CAS over a block store.
type CAS struct {
	bs    blockstore.Blockstore
	dag   ipld.DAGService
	close func() error
}

var _ storage.CAS = (*CAS)(nil)

// New wraps an existing datastore. The caller owns its lifecycle.
func New(ds datastore.Batching) *CAS {
	bs := blockstore.NewBlockstore(ds)
	return &CAS{
		bs:  bs,
		dag: merkledag.NewDAGService(blockservice.New(bs, nil)),
	}
}

// NewMemory returns a CAS backed by an in-memory map datastore.
func NewMemory() *CAS {
	return New(dssync.MutexWrap(datastore.NewMapDatastore()))
}

// OpenBadger opens (or creates) a persistent block store in dir.
func OpenBadger(dir string) (*CAS, error) {
	if dir == "" {
		return nil, errors.New("unixfs: badger directory is required")
	}
	opts := badgerds.DefaultOptions
	ds, err := badgerds.NewDatastore(dir, &opts)
	if err != nil {
		return nil, fmt.Errorf("unixfs: open badger datastore: %w", err)
	}
	c := New(ds)
	c.close = ds.Close
	return c, nil
}

func (c *CAS) Close() error {
	if c == nil || c.close == nil {
		return nil
	}
	return c.close()
}

func (c *CAS) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	id, err := cidutil.Import(bytes.NewReader(data), c.dag)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}
	return id, nil
}

func (c *CAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	root, err := c.dag.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	r, err := uio.NewDagReader(ctx, root, c.dag)
	if err != nil {
		return nil, fmt.Errorf("unixfs: %w", err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

func (c *CAS) Has(ctx context.Context, id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	ok, err := c.bs.Has(ctx, id)
	return err == nil && ok
}

func mapErr(err error) error {
	if ipld.IsNotFound(err) {
		return storage.ErrNotFound
	}
	return err
}
