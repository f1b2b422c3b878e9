package storage

import (
	"context"
	"errors"

	"github.com/ipfs/go-cid"
)

// MultiCAS provides deterministic, ordered fallback across multiple CAS adapters.
//
// Hydration order is the slice order in Adapters; callers MUST supply a fixed order.
//
// Put is defined to write only to the first adapter.
type MultiCAS struct {
	Adapters []CAS
}

func (m MultiCAS) Put(ctx context.Context, bytes []byte) (cid.Cid, error) {
	if len(m.Adapters) == 0 {
		return cid.Undef, errors.New("storage: MultiCAS has no adapters")
	}
	return m.Adapters[0].Put(ctx, bytes)
}

// Get tries adapters in order. Unavailable adapters are skipped; if none has
// the object and at least one was unavailable, the unavailable error wins.
func (m MultiCAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	return getOrdered(ctx, id, m.Adapters)
}

func (m MultiCAS) Has(ctx context.Context, id cid.Cid) bool {
	for _, cas := range m.Adapters {
		if cas.Has(ctx, id) {
			return true
		}
	}
	return false
}

func getOrdered(ctx context.Context, id cid.Cid, adapters []CAS) ([]byte, error) {
	var unavailable error
	for _, cas := range adapters {
		if cas == nil {
			continue
		}
		b, err := cas.Get(ctx, id)
		if err == nil {
			return b, nil
		}
		switch {
		case IsNotFound(err):
			continue
		case IsUnavailable(err):
			unavailable = err
			continue
		default:
			return nil, err
		}
	}
	if unavailable != nil {
		return nil, unavailable
	}
	return nil, ErrNotFound
}
