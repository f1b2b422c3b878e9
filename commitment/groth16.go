package commitment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

const (
	ProvingKeyFile   = "preimage_pk.bin"
	VerifyingKeyFile = "preimage_vk.bin"
)

// Groth16Prover proves PreimageCircuit over BN254 and self-verifies every
// proof before returning its public output.
type Groth16Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// CompileCircuit compiles PreimageCircuit to R1CS over the BN254 scalar field.
func CompileCircuit() (constraint.ConstraintSystem, error) {
	var c PreimageCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &c)
	if err != nil {
		return nil, fmt.Errorf("compile preimage circuit: %w", err)
	}
	return ccs, nil
}

// NewGroth16Prover compiles the circuit and loads its keys from keyDir,
// running a fresh setup when they are absent.
func NewGroth16Prover(keyDir string) (*Groth16Prover, error) {
	ccs, err := CompileCircuit()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return nil, err
	}
	pk, vk, err := SetupOrLoadKeys(ccs,
		filepath.Join(keyDir, ProvingKeyFile),
		filepath.Join(keyDir, VerifyingKeyFile))
	if err != nil {
		return nil, err
	}
	return &Groth16Prover{ccs: ccs, pk: pk, vk: vk}, nil
}

// LoadGroth16Prover is NewGroth16Prover without the setup fallback.
func LoadGroth16Prover(keyDir string) (*Groth16Prover, error) {
	ccs, err := CompileCircuit()
	if err != nil {
		return nil, err
	}
	pk, err := LoadProvingKey(filepath.Join(keyDir, ProvingKeyFile))
	if err != nil {
		return nil, missingAssets(err)
	}
	vk, err := LoadVerifyingKey(filepath.Join(keyDir, VerifyingKeyFile))
	if err != nil {
		return nil, missingAssets(err)
	}
	return &Groth16Prover{ccs: ccs, pk: pk, vk: vk}, nil
}

func missingAssets(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrMissingAssets, err)
	}
	return fmt.Errorf("%w: load circuit keys: %v", ErrProofGeneration, err)
}

func (p *Groth16Prover) VerifyingKey() groth16.VerifyingKey { return p.vk }

func (p *Groth16Prover) Prove(ctx context.Context, in Inputs) (out Outputs, err error) {
	if err := ctx.Err(); err != nil {
		return Outputs{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			out = Outputs{}
			err = fmt.Errorf("%w: prover panic: %v", ErrProofGeneration, r)
		}
	}()

	preimage := in.Preimage
	expected := Compress(preimage)
	assignment := &PreimageCircuit{
		Preimage:   preimage.BigInt(new(big.Int)),
		Commitment: expected.BigInt(new(big.Int)),
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return Outputs{}, fmt.Errorf("%w: witness: %v", ErrProofGeneration, err)
	}
	proof, err := groth16.Prove(p.ccs, p.pk, w)
	if err != nil {
		return Outputs{}, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	pub, err := w.Public()
	if err != nil {
		return Outputs{}, fmt.Errorf("%w: public witness: %v", ErrProofGeneration, err)
	}
	if err := groth16.Verify(proof, p.vk, pub); err != nil {
		return Outputs{}, fmt.Errorf("%w: self-verification: %v", ErrProofGeneration, err)
	}
	vec, ok := pub.Vector().(fr.Vector)
	if !ok {
		return Outputs{}, fmt.Errorf("%w: unexpected public witness type %T", ErrProofGeneration, pub.Vector())
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return Outputs{}, fmt.Errorf("%w: encode proof: %v", ErrProofGeneration, err)
	}
	if err := ctx.Err(); err != nil {
		return Outputs{}, err
	}
	return Outputs{Public: append([]FieldElement(nil), vec...), Proof: buf.Bytes()}, nil
}

// VerifyProof checks an encoded proof against a claimed commitment.
func (p *Groth16Prover) VerifyProof(proofBytes []byte, commitment Value) error {
	c, err := commitment.Element()
	if err != nil {
		return err
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("decode proof: %w", err)
	}
	pub, err := frontend.NewWitness(&PreimageCircuit{Commitment: c.BigInt(new(big.Int))}, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}
	return groth16.Verify(proof, p.vk, pub)
}

// SaveProvingKey writes pk to path.
func SaveProvingKey(path string, pk groth16.ProvingKey) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}

func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

// SetupOrLoadKeys loads keys from disk when both exist; otherwise it runs a
// fresh setup and persists the result.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		return pk, vk, nil
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("groth16 setup: %w", err)
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}
