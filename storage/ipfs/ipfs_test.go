package ipfs

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/testkit"
)

func TestMissingBinaryIsUnavailable(t *testing.T) {
	c := New(Options{Bin: filepath.Join(t.TempDir(), "no-such-ipfs")})
	_, err := c.Put(context.Background(), []byte("x"))
	if !storage.IsUnavailable(err) {
		t.Fatalf("Put: got %v want ErrUnavailable", err)
	}
}

// TestKuboConformance runs against a real Kubo binary when one is installed.
func TestKuboConformance(t *testing.T) {
	bin, err := exec.LookPath("ipfs")
	if err != nil {
		t.Skip("ipfs binary not installed")
	}
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		repo := t.TempDir()
		env := WithRepo(repo)
		cmd := exec.Command(bin, "init", "--profile=test")
		cmd.Env = env
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("ipfs init: %v: %s", err, out)
		}
		return New(Options{Bin: bin, Env: env, Offline: true, Pin: true})
	})
}
