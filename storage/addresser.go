package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/docreg/cidutil"
)

const DefaultTimeout = 30 * time.Second

// Addresser binds a CAS to the identifier algorithm and a per-call timeout.
type Addresser struct {
	CAS     CAS
	Timeout time.Duration
}

func (a Addresser) timeout() time.Duration {
	if a.Timeout <= 0 {
		return DefaultTimeout
	}
	return a.Timeout
}

// Store writes payload and returns its identifier. A backend that reports an
// identifier other than the computed one yields ErrCIDMismatch.
func (a Addresser) Store(ctx context.Context, payload []byte) (cid.Cid, error) {
	if a.CAS == nil {
		return cid.Undef, errors.New("storage: addresser has no CAS")
	}
	want, err := a.IdentifierOnly(payload)
	if err != nil {
		return cid.Undef, err
	}
	callCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	got, err := a.CAS.Put(callCtx, payload)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return cid.Undef, fmt.Errorf("%w: store timed out: %v", ErrUnavailable, err)
		}
		return cid.Undef, err
	}
	if !got.Equals(want) {
		return cid.Undef, fmt.Errorf("%w: backend returned %s, computed %s", ErrCIDMismatch, got, want)
	}
	return got, nil
}

// IdentifierOnly computes the identifier Store would return without storing.
func (a Addresser) IdentifierOnly(payload []byte) (cid.Cid, error) {
	return cidutil.Compute(bytes.NewReader(payload))
}

// Fetch retrieves the bytes for id. Content not retrievable before the timeout
// elapses is reported as ErrNotFound.
func (a Addresser) Fetch(ctx context.Context, id cid.Cid) ([]byte, error) {
	if a.CAS == nil {
		return nil, errors.New("storage: addresser has no CAS")
	}
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	callCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	b, err := a.CAS.Get(callCtx, id)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s not retrievable within %s", ErrNotFound, id, a.timeout())
		}
		return nil, err
	}
	return b, nil
}
