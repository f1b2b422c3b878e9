package casconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/casregistry"
	"xdao.co/docreg/storage/localfs"
	"xdao.co/docreg/storage/unixfs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAndOpenAll(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
write_policy: all
backends:
  - name: unixfs
    id: mem
  - name: localfs
    id: disk
    config:
      localfs-dir: `+dir+`
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "all", cfg.WritePolicy)
	require.Len(t, cfg.Backends, 2)

	cas, closeFn, err := cfg.Open(casregistry.UsageCLI, "")
	require.NoError(t, err)
	defer closeFn()

	r, ok := cas.(storage.ReplicatingCAS)
	require.True(t, ok, "got %T", cas)
	require.Equal(t, "mem", r.Backends[0].Name)

	id, err := cas.Put(context.Background(), []byte("both"))
	require.NoError(t, err)
	require.True(t, r.Backends[1].CAS.Has(context.Background(), id))
}

func TestOpenFirstPolicyWithPreferred(t *testing.T) {
	cfg := Config{Backends: []BackendConfig{
		{Name: "unixfs"},
		{Name: "localfs", Config: map[string]string{"localfs-dir": t.TempDir()}},
	}}
	cas, closeFn, err := cfg.Open(casregistry.UsageCLI, "localfs")
	require.NoError(t, err)
	defer closeFn()

	m, ok := cas.(storage.MultiCAS)
	require.True(t, ok, "got %T", cas)
	require.IsType(t, &localfs.CAS{}, m.Adapters[0])
	require.IsType(t, &unixfs.CAS{}, m.Adapters[1])
}

func TestValidate(t *testing.T) {
	require.Error(t, Config{}.Validate())
	require.Error(t, Config{Backends: []BackendConfig{{Name: "unixfs"}, {Name: "unixfs"}}}.Validate())
	require.Error(t, Config{WritePolicy: "some", Backends: []BackendConfig{{Name: "unixfs"}}}.Validate())
	require.NoError(t, Config{Backends: []BackendConfig{{Name: "unixfs", ID: "a"}, {Name: "unixfs", ID: "b"}}}.Validate())
}

func TestOpenRejectsUnknownOption(t *testing.T) {
	cfg := Config{Backends: []BackendConfig{{Name: "unixfs", Config: map[string]string{"bogus": "1"}}}}
	_, _, err := cfg.Open(casregistry.UsageCLI, "")
	require.Error(t, err)
}
