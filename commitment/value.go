package commitment

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrInvalidValue = errors.New("commitment: invalid commitment value")

// Value is the public commitment: "0x" followed by 64 lowercase hex digits.
type Value string

// FromElement renders e as a zero-padded big-endian hex commitment.
func FromElement(e *FieldElement) Value {
	b := e.Bytes()
	return Value("0x" + hex.EncodeToString(b[:]))
}

// ParseValue validates s and returns it in canonical lowercase form.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", fmt.Errorf("%w: missing 0x prefix", ErrInvalidValue)
	}
	body := s[2:]
	if len(body) != 64 {
		return "", fmt.Errorf("%w: want 64 hex digits, got %d", ErrInvalidValue, len(body))
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return Value("0x" + strings.ToLower(body)), nil
}

// Equal compares full strings, ignoring case. Prefixes never match.
func (v Value) Equal(other Value) bool {
	return len(v) == len(other) && strings.EqualFold(string(v), string(other))
}

func (v Value) String() string { return string(v) }

// Element decodes v back into the field.
func (v Value) Element() (FieldElement, error) {
	canon, err := ParseValue(string(v))
	if err != nil {
		return FieldElement{}, err
	}
	n, _ := new(big.Int).SetString(string(canon[2:]), 16)
	var e FieldElement
	e.SetBigInt(n)
	return e, nil
}
