package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/docreg/cidutil"
)

// NamedCAS associates a CAS with a stable backend name.
type NamedCAS struct {
	Name string
	CAS  CAS
}

// ReplicatingCAS writes to all configured backends.
//
// Reads fall back in order. Writes go to all backends and require all returned
// CIDs to match the computed identifier (otherwise ErrCIDMismatch is returned).
type ReplicatingCAS struct {
	Backends []NamedCAS
}

var _ CAS = (*ReplicatingCAS)(nil)

// PutAll writes the same bytes to all backends and returns the canonical CID
// plus the CID each backend reported.
func (r ReplicatingCAS) PutAll(ctx context.Context, b []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := cidutil.Compute(bytes.NewReader(b))
	if err != nil {
		return cid.Undef, nil, err
	}
	if !want.Defined() {
		return cid.Undef, nil, ErrInvalidCID
	}
	if len(r.Backends) == 0 {
		return cid.Undef, nil, fmt.Errorf("storage: ReplicatingCAS has no backends")
	}

	out := make(map[string]cid.Cid, len(r.Backends))
	for _, nb := range r.Backends {
		if nb.CAS == nil {
			return cid.Undef, nil, fmt.Errorf("storage: nil CAS for backend %q", nb.Name)
		}
		got, err := nb.CAS.Put(ctx, b)
		if err != nil {
			return cid.Undef, out, fmt.Errorf("storage: backend %q: %w", nb.Name, err)
		}
		out[nb.Name] = got
		if !got.Equals(want) {
			return cid.Undef, out, ErrCIDMismatch
		}
	}
	return want, out, nil
}

func (r ReplicatingCAS) Put(ctx context.Context, b []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(ctx, b)
	return id, err
}

func (r ReplicatingCAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	adapters := make([]CAS, 0, len(r.Backends))
	for _, nb := range r.Backends {
		adapters = append(adapters, nb.CAS)
	}
	return getOrdered(ctx, id, adapters)
}

func (r ReplicatingCAS) Has(ctx context.Context, id cid.Cid) bool {
	for _, nb := range r.Backends {
		if nb.CAS != nil && nb.CAS.Has(ctx, id) {
			return true
		}
	}
	return false
}
