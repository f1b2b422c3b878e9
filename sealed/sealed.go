// Package sealed implements password-based authenticated encryption of
// document payloads.
//
// Wire format (bit-exact):
//
//	offset 0..15   salt
//	offset 16..27  nonce
//	offset 28..    AES-256-GCM ciphertext with the 16-byte tag appended
//
// The key is PBKDF2-HMAC-SHA256(password, salt, 100000 iterations, 32 bytes).
package sealed

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	sha256 "github.com/minio/sha256-simd"
	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize   = 16
	NonceSize  = 12
	TagSize    = 16
	KeySize    = 32
	Iterations = 100000

	// Overhead is the number of bytes Encrypt adds to a plaintext.
	Overhead = SaltSize + NonceSize + TagSize
)

var (
	ErrAuthentication = errors.New("sealed: authentication failed (wrong password or corrupted data)")
	ErrMalformed      = errors.New("sealed: malformed payload")
	ErrEmptyPassword  = errors.New("sealed: empty password")
)

func IsAuthentication(err error) bool { return errors.Is(err, ErrAuthentication) }

// DeriveKey derives the AES-256 key for password and a 16-byte salt.
func DeriveKey(password string, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("sealed: salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New), nil
}

// Encrypt seals plaintext under password with a fresh salt and nonce.
func Encrypt(plaintext []byte, password string) ([]byte, error) {
	return encrypt(rand.Reader, plaintext, password)
}

func encrypt(random io.Reader, plaintext []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	out := make([]byte, SaltSize+NonceSize, SaltSize+NonceSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(random, out); err != nil {
		return nil, fmt.Errorf("sealed: read randomness: %w", err)
	}
	salt := out[:SaltSize]
	nonce := out[SaltSize : SaltSize+NonceSize]

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt opens a payload produced by Encrypt. A tag mismatch yields
// ErrAuthentication and no plaintext.
func Decrypt(payload []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if len(payload) < Overhead {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformed, len(payload), Overhead)
	}
	salt := payload[:SaltSize]
	nonce := payload[SaltSize : SaltSize+NonceSize]
	ciphertext := payload[SaltSize+NonceSize:]

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

func newAEAD(password string, salt []byte) (cipher.AEAD, error) {
	key, err := DeriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
