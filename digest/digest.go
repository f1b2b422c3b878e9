// Package digest computes the fixed-width content digest used as the
// deduplication key of a registered document and as the binding context of
// file-bound commitments.
package digest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	sha256 "github.com/minio/sha256-simd"
)

// Size is the digest width in bytes (SHA-256).
const Size = sha256.Size

// Digest is the SHA-256 digest of a byte stream.
type Digest [Size]byte

var ErrInvalidDigest = errors.New("digest: invalid digest")

// Sum returns the digest of b.
func Sum(b []byte) Digest {
	return Digest(sha256.Sum256(b))
}

// SumReader hashes r incrementally. The only errors returned are r's.
func SumReader(r io.Reader) (Digest, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// Hex returns the canonical text form: "0x" followed by 64 lowercase hex digits.
func (d Digest) Hex() string {
	return "0x" + hex.EncodeToString(d[:])
}

func (d Digest) String() string { return d.Hex() }

func (d Digest) IsZero() bool { return d == Digest{} }

// Parse accepts the canonical form, with or without the 0x prefix, in any case.
func Parse(s string) (Digest, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if len(s) != 2*Size {
		return Digest{}, fmt.Errorf("%w: want %d hex digits, got %d", ErrInvalidDigest, 2*Size, len(s))
	}
	var d Digest
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return Digest{}, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	return d, nil
}

func (d Digest) MarshalText() ([]byte, error) { return []byte(d.Hex()), nil }

func (d *Digest) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
