package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"xdao.co/docreg/registry"
)

// Identity is a loaded signing key. It implements registry.Signer.
type Identity struct {
	Name string
	Role string
	key  *ecdsa.PrivateKey
}

var _ registry.Signer = Identity{}

// NewIdentity wraps a raw private key.
func NewIdentity(name, role string, raw []byte) (Identity, error) {
	k, err := crypto.ToECDSA(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid secp256k1 key: %w", err)
	}
	return Identity{Name: name, Role: role, key: k}, nil
}

func (id Identity) Address() registry.Address { return crypto.PubkeyToAddress(id.key.PublicKey) }

// Sign returns a 65-byte recoverable signature over a 32-byte hash.
func (id Identity) Sign(hash []byte) ([]byte, error) { return crypto.Sign(hash, id.key) }

// PrivateKeyHex exports the raw key as lowercase hex.
func (id Identity) PrivateKeyHex() string { return hex.EncodeToString(crypto.FromECDSA(id.key)) }

// ParseKeyHex decodes a hex private key, with or without a 0x prefix.
func ParseKeyHex(keyHex string) ([]byte, error) {
	keyHex = strings.TrimSpace(keyHex)
	keyHex = strings.TrimPrefix(keyHex, "0x")
	data, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, err
	}
	if len(data) != KeySize {
		return nil, fmt.Errorf("expected key length of %d bytes, got %d", KeySize, len(data))
	}
	if _, err := crypto.ToECDSA(data); err != nil {
		return nil, fmt.Errorf("invalid secp256k1 key: %w", err)
	}
	return data, nil
}

// GenerateKey returns a fresh random private key.
func GenerateKey() ([]byte, error) {
	k, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return crypto.FromECDSA(k), nil
}
