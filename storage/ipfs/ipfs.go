package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/storage"
)

// CAS is a content-addressable store backed by the local Kubo "ipfs" CLI.
//
// Payloads are added as UnixFS files with the same chunking and DAG
// parameters as cidutil, so the identifier printed by "ipfs add" is the one
// Compute returns. Reads go through "ipfs cat" and are re-addressed locally.
//
// The package does not embed a network client; it shells out to Kubo.
type CAS struct {
	bin     string
	env     []string
	offline bool
	pin     bool
}

type Options struct {
	// Bin is the path to the ipfs binary. If empty, "ipfs" is used.
	Bin string
	// Env optionally overrides the command environment (e.g. to set IPFS_PATH).
	// If nil, the process environment is used.
	Env []string
	// Offline restricts every command to the local repo.
	Offline bool
	// Pin pins added payloads.
	Pin bool
}

func New(opts Options) *CAS {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	return &CAS{bin: bin, env: opts.Env, offline: opts.Offline, pin: opts.Pin}
}

// WithRepo returns the process environment with IPFS_PATH set to path.
func WithRepo(path string) []string {
	if path == "" {
		return nil
	}
	return append(os.Environ(), "IPFS_PATH="+path)
}

func (c *CAS) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	id, err := cidutil.Compute(bytes.NewReader(data))
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}

	out, err := c.run(ctx, data,
		"add",
		"--quieter",
		"--cid-version=1",
		"--raw-leaves",
		"--chunker=size-"+strconv.Itoa(cidutil.ChunkSize),
		"--pin="+strconv.FormatBool(c.pin),
	)
	if err != nil {
		return cid.Undef, err
	}

	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return cid.Undef, fmt.Errorf("ipfs: unexpected add output: %w", err)
	}
	if !got.Equals(id) {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return id, nil
}

func (c *CAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}

	out, err := c.run(ctx, nil, "cat", id.String())
	if err != nil {
		if isLikelyNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	got, herr := cidutil.Compute(bytes.NewReader(out))
	if herr != nil {
		return nil, herr
	}
	if !got.Equals(id) {
		return nil, storage.ErrCIDMismatch
	}
	return out, nil
}

func (c *CAS) Has(ctx context.Context, id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := c.run(ctx, nil, "block", "stat", id.String())
	return err == nil
}

func (c *CAS) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	if c.offline {
		args = append([]string{"--offline"}, args...)
	}
	cmd := exec.CommandContext(ctx, c.bin, args...)
	if c.env != nil {
		cmd.Env = c.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: ipfs binary %q: %v", storage.ErrUnavailable, c.bin, err)
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		s := strings.TrimSpace(string(ee.Stderr))
		if s == "" {
			return nil, fmt.Errorf("ipfs: %v", err)
		}
		if isLikelyUnavailable(s) {
			return nil, fmt.Errorf("%w: ipfs: %s", storage.ErrUnavailable, s)
		}
		return nil, fmt.Errorf("ipfs: %s", s)
	}
	return nil, err
}

func isLikelyNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "could not find")
}

func isLikelyUnavailable(stderr string) bool {
	msg := strings.ToLower(stderr)
	return strings.Contains(msg, "repo.lock") || strings.Contains(msg, "no ipfs repo found")
}
