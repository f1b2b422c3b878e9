package digest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumKnownVector(t *testing.T) {
	d := Sum([]byte("hello"))
	require.Equal(t, "0x2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", d.Hex())
}

func TestSumDeterministic(t *testing.T) {
	b := bytes.Repeat([]byte("document bytes "), 1000)
	require.Equal(t, Sum(b), Sum(b))
	require.NotEqual(t, Sum(b), Sum(append(b, 0)))
}

func TestSumReaderMatchesSum(t *testing.T) {
	b := bytes.Repeat([]byte{0xab, 0xcd, 0xef}, 1<<18)
	got, err := SumReader(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, Sum(b), got)
}

func TestSumEmpty(t *testing.T) {
	require.Equal(t, "0xe3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil).Hex())
}

func TestParseRoundTrip(t *testing.T) {
	d := Sum([]byte("hello"))

	got, err := Parse(d.Hex())
	require.NoError(t, err)
	require.Equal(t, d, got)

	got, err = Parse(strings.ToUpper(strings.TrimPrefix(d.Hex(), "0x")))
	require.NoError(t, err)
	require.Equal(t, d, got)
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "0x", "0x1234", strings.Repeat("zz", Size)} {
		_, err := Parse(in)
		require.ErrorIs(t, err, ErrInvalidDigest, "input %q", in)
	}
}

func TestTextMarshaling(t *testing.T) {
	d := Sum([]byte("x"))
	b, err := d.MarshalText()
	require.NoError(t, err)

	var out Digest
	require.NoError(t, out.UnmarshalText(b))
	require.Equal(t, d, out)
	require.False(t, out.IsZero())
	require.True(t, Digest{}.IsZero())
}
