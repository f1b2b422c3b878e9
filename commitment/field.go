package commitment

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	sha256 "github.com/minio/sha256-simd"

	"xdao.co/docreg/digest"
)

// FieldElement is an element of the circuit's scalar field.
type FieldElement = fr.Element

// Binding selects how a secret becomes a preimage.
type Binding int

const (
	Bound Binding = iota
	Unbound
)

func (b Binding) String() string {
	switch b {
	case Bound:
		return "bound"
	case Unbound:
		return "unbound"
	default:
		return fmt.Sprintf("binding(%d)", int(b))
	}
}

func ParseBinding(s string) (Binding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bound":
		return Bound, nil
	case "unbound":
		return Unbound, nil
	default:
		return 0, fmt.Errorf("commitment: unknown binding mode %q", s)
	}
}

func (b Binding) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *Binding) UnmarshalText(text []byte) error {
	parsed, err := ParseBinding(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// PreimageFromSecret reads the secret's bytes as a big-endian unsigned
// integer and reduces it into the field.
func PreimageFromSecret(secret string) FieldElement {
	return fromBigEndian([]byte(secret))
}

// BoundPreimage hashes the digest's canonical hex text concatenated with the
// raw secret and reduces the hash into the field.
func BoundPreimage(d digest.Digest, secret string) FieldElement {
	sum := sha256.Sum256([]byte(d.Hex() + secret))
	return fromBigEndian(sum[:])
}

// Preimage applies binding. The digest is ignored for Unbound.
func Preimage(b Binding, d digest.Digest, secret string) FieldElement {
	if b == Unbound {
		return PreimageFromSecret(secret)
	}
	return BoundPreimage(d, secret)
}

func fromBigEndian(b []byte) FieldElement {
	var e FieldElement
	e.SetBigInt(new(big.Int).SetBytes(b))
	return e
}
