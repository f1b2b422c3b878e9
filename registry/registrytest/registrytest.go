// Package registrytest holds the conformance suite every registry.Registry
// implementation must pass.
package registrytest

import (
	"context"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/commitment"
	"xdao.co/docreg/digest"
	"xdao.co/docreg/registry"
)

// NewRegistry constructs a fresh, empty registry for one test.
type NewRegistry func(t *testing.T) registry.Registry

// NewSigner returns a random signing identity.
func NewSigner(t *testing.T) registry.KeySigner {
	t.Helper()
	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	return registry.KeySigner{Key: k}
}

// Request builds a well-formed request for body with a fixed commitment.
func Request(t *testing.T, body string) registry.Request {
	t.Helper()
	id, err := cidutil.ComputeBytes([]byte(body))
	require.NoError(t, err)
	return registry.Request{
		Identifier:     id.String(),
		Commitment:     commitment.Value("0x" + strings.Repeat("1f", 32)),
		OriginalDigest: digest.Sum([]byte(body)),
	}
}

func Submit(ctx context.Context, t *testing.T, reg registry.Registry, s registry.Signer, req registry.Request) uint64 {
	t.Helper()
	signed, err := registry.Sign(s, req)
	require.NoError(t, err)
	id, err := reg.Submit(ctx, signed)
	require.NoError(t, err)
	return id
}

func RunConformance(t *testing.T, newRegistry NewRegistry) {
	t.Helper()
	ctx := context.Background()

	t.Run("LookupsOnEmptyRegistry", func(t *testing.T) {
		reg := newRegistry(t)
		res, err := reg.FindByOriginalDigest(ctx, digest.Sum([]byte("nothing")))
		require.NoError(t, err)
		require.False(t, res.Found)

		res, err = reg.FindByIdentifier(ctx, Request(t, "nothing").Identifier)
		require.NoError(t, err)
		require.False(t, res.Found)

		_, err = reg.Get(ctx, 1)
		require.ErrorIs(t, err, registry.ErrUnknownDocument)

		ids, err := reg.ListByUploader(ctx, NewSigner(t).Address())
		require.NoError(t, err)
		require.Empty(t, ids)
	})

	t.Run("SubmitAndLookup", func(t *testing.T) {
		reg := newRegistry(t)
		s := NewSigner(t)
		req := Request(t, "hello")
		req.Encrypted = true

		id := Submit(ctx, t, reg, s, req)
		require.NotZero(t, id)

		rec, err := reg.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, id, rec.ID)
		require.Equal(t, req.Identifier, rec.Identifier)
		require.Equal(t, req.Commitment, rec.Commitment)
		require.Equal(t, req.OriginalDigest, rec.OriginalDigest)
		require.Equal(t, s.Address(), rec.Uploader)
		require.True(t, rec.Encrypted)
		require.False(t, rec.RegisteredAt.IsZero())

		res, err := reg.FindByOriginalDigest(ctx, req.OriginalDigest)
		require.NoError(t, err)
		require.True(t, res.Found)
		require.Equal(t, id, res.Record.ID)

		res, err = reg.FindByIdentifier(ctx, req.Identifier)
		require.NoError(t, err)
		require.True(t, res.Found)
		require.Equal(t, id, res.Record.ID)
	})

	t.Run("DuplicateKeepsFirstUploader", func(t *testing.T) {
		reg := newRegistry(t)
		first, second := NewSigner(t), NewSigner(t)
		req := Request(t, "contested")

		id := Submit(ctx, t, reg, first, req)

		other := req
		other.Commitment = commitment.Value("0x" + strings.Repeat("2e", 32))
		signed, err := registry.Sign(second, other)
		require.NoError(t, err)
		_, err = reg.Submit(ctx, signed)
		require.ErrorIs(t, err, registry.ErrDuplicate)

		res, err := reg.FindByOriginalDigest(ctx, req.OriginalDigest)
		require.NoError(t, err)
		require.True(t, res.Found)
		require.Equal(t, id, res.Record.ID)
		require.Equal(t, first.Address(), res.Record.Uploader)
		require.Equal(t, req.Commitment, res.Record.Commitment)

		ids, err := reg.ListByUploader(ctx, second.Address())
		require.NoError(t, err)
		require.Empty(t, ids)
	})

	t.Run("ListByUploaderInSubmissionOrder", func(t *testing.T) {
		reg := newRegistry(t)
		a, b := NewSigner(t), NewSigner(t)

		var want []uint64
		for _, body := range []string{"one", "two", "three"} {
			want = append(want, Submit(ctx, t, reg, a, Request(t, body)))
		}
		Submit(ctx, t, reg, b, Request(t, "someone else"))

		got, err := reg.ListByUploader(ctx, a.Address())
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.Less(t, want[0], want[1])
		require.Less(t, want[1], want[2])
	})

	t.Run("RejectsBadSignature", func(t *testing.T) {
		reg := newRegistry(t)
		signed, err := registry.Sign(NewSigner(t), Request(t, "forged"))
		require.NoError(t, err)
		signed.Signature = signed.Signature[:20]
		_, err = reg.Submit(ctx, signed)
		require.ErrorIs(t, err, registry.ErrInvalidRequest)
	})

	t.Run("RejectsMalformedRequest", func(t *testing.T) {
		reg := newRegistry(t)
		req := Request(t, "malformed")
		signed, err := registry.Sign(NewSigner(t), req)
		require.NoError(t, err)
		signed.Request.Identifier = "not a cid"
		_, err = reg.Submit(ctx, signed)
		require.ErrorIs(t, err, registry.ErrInvalidRequest)
	})
}
