package registry

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/commitment"
	"xdao.co/docreg/digest"
)

// requestDomain separates request signatures from any other use of a key.
const requestDomain = "xdao.docreg.request.v1"

// Request asks the registry to record one document.
type Request struct {
	Identifier     string           `cbor:"1,keyasint"`
	Commitment     commitment.Value `cbor:"2,keyasint"`
	Encrypted      bool             `cbor:"3,keyasint"`
	OriginalDigest digest.Digest    `cbor:"4,keyasint"`
}

// SignedRequest is a Request with a 65-byte [R || S || V] secp256k1
// signature over Request.Hash.
type SignedRequest struct {
	Request   Request `cbor:"1,keyasint"`
	Signature []byte  `cbor:"2,keyasint"`
}

// Signer produces recoverable secp256k1 signatures over 32-byte hashes.
type Signer interface {
	Address() Address
	Sign(hash []byte) ([]byte, error)
}

// Validate checks field shapes. It does not consult any registry state.
func (r Request) Validate() error {
	if _, err := cidutil.Parse(r.Identifier); err != nil {
		return fmt.Errorf("%w: identifier: %v", ErrInvalidRequest, err)
	}
	if _, err := commitment.ParseValue(string(r.Commitment)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.OriginalDigest.IsZero() {
		return fmt.Errorf("%w: missing original digest", ErrInvalidRequest)
	}
	return nil
}

// Hash is keccak256(domain || deterministic CBOR(r)).
func (r Request) Hash() ([]byte, error) {
	b, err := Marshal(r)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256([]byte(requestDomain), b), nil
}

// Sign validates r and signs it with s.
func Sign(s Signer, r Request) (SignedRequest, error) {
	if err := r.Validate(); err != nil {
		return SignedRequest{}, err
	}
	h, err := r.Hash()
	if err != nil {
		return SignedRequest{}, err
	}
	sig, err := s.Sign(h)
	if err != nil {
		return SignedRequest{}, fmt.Errorf("registry: sign request: %w", err)
	}
	return SignedRequest{Request: r, Signature: sig}, nil
}

// Uploader recovers the address that signed the request.
func (s SignedRequest) Uploader() (Address, error) {
	if len(s.Signature) != crypto.SignatureLength {
		return Address{}, fmt.Errorf("%w: signature length %d", ErrInvalidRequest, len(s.Signature))
	}
	h, err := s.Request.Hash()
	if err != nil {
		return Address{}, err
	}
	pub, err := crypto.SigToPub(h, s.Signature)
	if err != nil {
		return Address{}, fmt.Errorf("%w: recover signer: %v", ErrInvalidRequest, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// KeySigner signs with an in-memory private key.
type KeySigner struct {
	Key *ecdsa.PrivateKey
}

func (k KeySigner) Address() Address { return crypto.PubkeyToAddress(k.Key.PublicKey) }

func (k KeySigner) Sign(hash []byte) ([]byte, error) { return crypto.Sign(hash, k.Key) }
