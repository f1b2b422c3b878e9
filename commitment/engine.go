package commitment

import (
	"context"
	"errors"
	"fmt"

	"xdao.co/docreg/digest"
)

// Engine turns preimages into commitment values through a Prover.
type Engine struct {
	Prover Prover
}

func NewEngine(p Prover) *Engine {
	if p == nil {
		p = NativeProver{}
	}
	return &Engine{Prover: p}
}

// Commit runs the prover on preimage and renders its single public output.
func (e *Engine) Commit(ctx context.Context, preimage FieldElement) (Value, error) {
	out, err := e.Prover.Prove(ctx, Inputs{Preimage: preimage})
	if err != nil {
		if errors.Is(err, ErrProofGeneration) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	if len(out.Public) != 1 {
		return "", fmt.Errorf("%w: want 1 public output, got %d", ErrProofGeneration, len(out.Public))
	}
	return FromElement(&out.Public[0]), nil
}

// Verify recomputes the commitment for secret and compares it to expected.
// A nil digest selects the unbound preimage.
func (e *Engine) Verify(ctx context.Context, secret string, d *digest.Digest, expected Value) (bool, error) {
	var pre FieldElement
	if d == nil {
		pre = PreimageFromSecret(secret)
	} else {
		pre = BoundPreimage(*d, secret)
	}
	got, err := e.Commit(ctx, pre)
	if err != nil {
		return false, err
	}
	return got.Equal(expected), nil
}
