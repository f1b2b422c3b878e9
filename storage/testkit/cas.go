// Package testkit holds conformance suites shared by every storage adapter.
package testkit

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/storage"
)

// NewCAS constructs a fresh, empty CAS instance for a test.
// The returned CAS MUST be isolated from other tests.
type NewCAS func(t *testing.T) storage.CAS

func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte("hello, docreg storage")
		roundTrip(ctx, t, cas, want)
	})

	t.Run("MultiChunkRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := make([]byte, 2*cidutil.ChunkSize+1234)
		for i := range want {
			want[i] = byte(i * 7)
		}
		id := roundTrip(ctx, t, cas, want)
		if id.Prefix().Codec != cid.DagProtobuf {
			t.Fatalf("multi-chunk payload: got codec %x want dag-pb", id.Prefix().Codec)
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")

		id1, err := cas.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := cas.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if !id1.Equals(id2) {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id, err := cidutil.ComputeBytes(b)
		if err != nil {
			t.Fatalf("ComputeBytes failed: %v", err)
		}

		if cas.Has(ctx, id) {
			t.Fatalf("Has returned true for missing CID")
		}
		_, err = cas.Get(ctx, id)
		if !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err = cas.Put(ctx, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !cas.Has(ctx, id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		if cas.Has(ctx, undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := cas.Get(ctx, undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})
}

// roundTrip stores want, checks the id against cidutil.Compute and reads it back.
func roundTrip(ctx context.Context, t *testing.T, cas storage.CAS, want []byte) cid.Cid {
	t.Helper()
	id, err := cas.Put(ctx, want)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	wantID, err := cidutil.ComputeBytes(want)
	if err != nil {
		t.Fatalf("ComputeBytes failed: %v", err)
	}
	if !id.Equals(wantID) {
		t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
	}

	got, err := cas.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Get bytes mismatch")
	}
	return id
}
