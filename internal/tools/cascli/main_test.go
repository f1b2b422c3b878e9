package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetHas(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o600))

	var out, errOut bytes.Buffer
	require.Equal(t, 0, run(ctx, []string{"put", "--localfs-dir", dir, src}, &out, &errOut), errOut.String())
	id := strings.TrimSpace(out.String())
	require.Equal(t, "bafkreibm6jg3ux5qumhcn2b3flc3tyu6dmlb4xa7u5bf44yegnrjhc4yeq", id)

	out.Reset()
	require.Equal(t, 0, run(ctx, []string{"get", "--localfs-dir", dir, "--cid", id}, &out, &errOut), errOut.String())
	require.Equal(t, "hello", out.String())

	out.Reset()
	require.Equal(t, 0, run(ctx, []string{"has", "--localfs-dir", dir, id}, &out, &errOut))
	require.Equal(t, id+"\tpresent\n", out.String())

	out.Reset()
	require.Equal(t, 1, run(ctx, []string{"has", "--localfs-dir", dir, id, "not-a-cid"}, &out, &errOut))
	require.Contains(t, out.String(), "not-a-cid\tinvalid")
}

func TestUsageErrors(t *testing.T) {
	ctx := context.Background()
	var out, errOut bytes.Buffer
	require.Equal(t, 2, run(ctx, nil, &out, &errOut))
	require.Equal(t, 2, run(ctx, []string{"get", "--localfs-dir", t.TempDir()}, &out, &errOut))
	require.Equal(t, 2, run(ctx, []string{"get", "--cid", "zzz"}, &out, &errOut))
	require.Equal(t, 1, run(ctx, []string{"put", filepath.Join(t.TempDir(), "x")}, &out, &errOut))

	out.Reset()
	require.Equal(t, 0, run(ctx, []string{"put", "--list-backends"}, &out, &errOut))
	require.Contains(t, out.String(), "localfs")
}
