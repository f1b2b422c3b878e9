package keys

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	sha256 "github.com/minio/sha256-simd"
)

// KeySize is the length of a raw secp256k1 private key.
const KeySize = 32

const deriveDomain = "xdao-docreg-keys-v1"

// DeriveRoleSeed deterministically derives a role-specific private key from
// a root key. Candidates outside the curve order are skipped by counter.
func DeriveRoleSeed(rootKey []byte, role string) ([]byte, error) {
	if len(rootKey) != KeySize {
		return nil, fmt.Errorf("root key must be %d bytes", KeySize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	for ctr := 0; ctr < 256; ctr++ {
		h := sha256.New()
		_, _ = h.Write(rootKey)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(deriveDomain))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte("role:"))
		_, _ = h.Write([]byte(role))
		_, _ = h.Write([]byte{0, byte(ctr)})
		sum := h.Sum(nil)
		if _, err := crypto.ToECDSA(sum); err == nil {
			return sum, nil
		}
	}
	return nil, fmt.Errorf("no valid key derived for role %q", role)
}
