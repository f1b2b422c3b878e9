package registry

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/commitment"
	"xdao.co/docreg/digest"
)

func testRequest(t *testing.T, body string) Request {
	t.Helper()
	id, err := cidutil.ComputeBytes([]byte(body))
	require.NoError(t, err)
	return Request{
		Identifier:     id.String(),
		Commitment:     commitment.Value("0x" + strings.Repeat("0a", 32)),
		OriginalDigest: digest.Sum([]byte(body)),
	}
}

func testSigner(t *testing.T) KeySigner {
	t.Helper()
	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	return KeySigner{Key: k}
}

func TestSignRecoversUploader(t *testing.T) {
	s := testSigner(t)
	signed, err := Sign(s, testRequest(t, "hello"))
	require.NoError(t, err)
	require.Len(t, signed.Signature, crypto.SignatureLength)

	got, err := signed.Uploader()
	require.NoError(t, err)
	require.Equal(t, s.Address(), got)
}

func TestTamperedRequestRecoversOtherAddress(t *testing.T) {
	s := testSigner(t)
	signed, err := Sign(s, testRequest(t, "hello"))
	require.NoError(t, err)

	signed.Request.Encrypted = true
	got, err := signed.Uploader()
	if err == nil {
		require.NotEqual(t, s.Address(), got)
	}

	signed.Signature = signed.Signature[:10]
	_, err = signed.Uploader()
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestHashDeterministic(t *testing.T) {
	r := testRequest(t, "hello")
	h1, err := r.Hash()
	require.NoError(t, err)
	h2, err := r.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	r.Encrypted = true
	h3, err := r.Hash()
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}

func TestValidate(t *testing.T) {
	good := testRequest(t, "hello")
	require.NoError(t, good.Validate())

	bad := good
	bad.Identifier = "nope"
	require.ErrorIs(t, bad.Validate(), ErrInvalidRequest)

	bad = good
	bad.Commitment = "0x12"
	require.ErrorIs(t, bad.Validate(), ErrInvalidRequest)

	bad = good
	bad.OriginalDigest = digest.Digest{}
	require.ErrorIs(t, bad.Validate(), ErrInvalidRequest)

	_, err := Sign(testSigner(t), bad)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRecordCodecRoundTrip(t *testing.T) {
	s := testSigner(t)
	rec := Record{
		ID:             7,
		Identifier:     testRequest(t, "x").Identifier,
		Commitment:     commitment.Value("0x" + strings.Repeat("ff", 32)),
		Uploader:       s.Address(),
		Encrypted:      true,
		OriginalDigest: digest.Sum([]byte("x")),
		RegisteredAt:   time.Date(2026, 3, 1, 12, 0, 0, 5, time.UTC),
	}
	b, err := Marshal(Found(rec))
	require.NoError(t, err)

	var got Result
	require.NoError(t, Unmarshal(b, &got))
	require.True(t, got.Found)
	require.Equal(t, rec.Uploader, got.Record.Uploader)
	require.Equal(t, rec.OriginalDigest, got.Record.OriginalDigest)
	require.True(t, rec.RegisteredAt.Equal(got.Record.RegisteredAt))
	require.Equal(t, rec.Commitment, got.Record.Commitment)
}
