// Package registry defines the append-only document registry the protocol
// consults: records, signed submissions, structured lookup results and the
// sentinel errors every registry implementation maps its transport onto.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"xdao.co/docreg/commitment"
	"xdao.co/docreg/digest"
)

// Address identifies an uploader.
type Address = common.Address

var (
	// ErrDuplicate is returned by Submit when a record for the same original
	// digest already exists.
	ErrDuplicate = errors.New("registry: document already registered")
	// ErrUnknownDocument is returned by Get for an id that was never issued.
	ErrUnknownDocument = errors.New("registry: unknown document")
	// ErrUnavailable marks transport failures. Lookups that fail with it
	// may be retried.
	ErrUnavailable = errors.New("registry: unavailable")
	// ErrInvalidRequest is returned for malformed or badly signed submissions.
	ErrInvalidRequest = errors.New("registry: invalid request")
)

func IsDuplicate(err error) bool   { return errors.Is(err, ErrDuplicate) }
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// Record is one registered document.
type Record struct {
	ID             uint64           `cbor:"1,keyasint"`
	Identifier     string           `cbor:"2,keyasint"`
	Commitment     commitment.Value `cbor:"3,keyasint"`
	Uploader       Address          `cbor:"4,keyasint"`
	Encrypted      bool             `cbor:"5,keyasint"`
	OriginalDigest digest.Digest    `cbor:"6,keyasint"`
	RegisteredAt   time.Time        `cbor:"7,keyasint"`
}

// Result is the outcome of a lookup that reached the registry: either a
// record was found or none exists. Transport failures are reported as errors
// instead, never as a Result.
type Result struct {
	Found  bool   `cbor:"1,keyasint"`
	Record Record `cbor:"2,keyasint"`
}

func Found(r Record) Result { return Result{Found: true, Record: r} }

var NotFound = Result{}

// Registry is the append-only document ledger.
type Registry interface {
	FindByOriginalDigest(ctx context.Context, d digest.Digest) (Result, error)
	FindByIdentifier(ctx context.Context, identifier string) (Result, error)
	// Submit appends a record and returns its id. It is not idempotent and
	// callers must not retry it automatically.
	Submit(ctx context.Context, req SignedRequest) (uint64, error)
	ListByUploader(ctx context.Context, uploader Address) ([]uint64, error)
	Get(ctx context.Context, id uint64) (Record, error)
}
