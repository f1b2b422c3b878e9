package commitment

import (
	"context"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// ErrProofGeneration wraps every failure of a proving backend.
var ErrProofGeneration = errors.New("commitment: proof generation failed")

// ErrMissingAssets is returned when circuit keys are required but absent.
var ErrMissingAssets = fmt.Errorf("%w: missing circuit assets", ErrProofGeneration)

func IsProofGeneration(err error) bool { return errors.Is(err, ErrProofGeneration) }

// Inputs are the private inputs of the preimage circuit.
type Inputs struct {
	Preimage FieldElement
}

// Outputs carry the public signals of one proving run. Proof is empty for
// backends that do not produce one.
type Outputs struct {
	Public []FieldElement
	Proof  []byte
}

// Prover evaluates the preimage circuit.
type Prover interface {
	Prove(ctx context.Context, in Inputs) (Outputs, error)
}

// NativeProver computes the circuit's public output without producing a proof.
type NativeProver struct{}

func (NativeProver) Prove(ctx context.Context, in Inputs) (Outputs, error) {
	if err := ctx.Err(); err != nil {
		return Outputs{}, err
	}
	out := Compress(in.Preimage)
	return Outputs{Public: []FieldElement{out}}, nil
}

// Compress is the circuit's one-way compression evaluated outside the circuit.
func Compress(preimage FieldElement) FieldElement {
	h := mimc.NewMiMC()
	b := preimage.Bytes()
	_, _ = h.Write(b[:])
	var out FieldElement
	out.SetBytes(h.Sum(nil))
	return out
}
