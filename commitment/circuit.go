package commitment

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// PreimageCircuit proves knowledge of Preimage such that MiMC(Preimage) equals
// the public Commitment.
type PreimageCircuit struct {
	Preimage   frontend.Variable `gnark:",secret"`
	Commitment frontend.Variable `gnark:",public"`
}

func (c *PreimageCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Preimage)
	api.AssertIsEqual(h.Sum(), c.Commitment)
	return nil
}
