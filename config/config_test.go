package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"xdao.co/docreg/commitment"
	"xdao.co/docreg/registry/ledger"
	"xdao.co/docreg/storage/casregistry"
	"xdao.co/docreg/storage/unixfs"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, commitment.Bound, cfg.Binding)
	require.Equal(t, RegistryLedger, cfg.Registry.Backend)
	require.Equal(t, ProverNative, cfg.Prover.Backend)
	require.Len(t, cfg.Storage.Backends, 1)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docreg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
binding: unbound
registry:
  backend: grpc
  grpc_target: 127.0.0.1:7778
  timeout: 5s
storage:
  timeout: 1m
  write_policy: all
  backends:
    - name: unixfs
      config: {unixfs-dir: /tmp/blocks}
    - name: ipfs
      id: kubo
      config: {ipfs-offline: "true"}
prover:
  backend: groth16
  key_dir: /tmp/circuit
retry: {max_retries: 5, base_delay: 50ms}
log: {level: debug, format: json}
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, commitment.Unbound, cfg.Binding)
	require.Equal(t, RegistryGRPC, cfg.Registry.Backend)
	require.Equal(t, "127.0.0.1:7778", cfg.Registry.GRPCTarget)
	require.Equal(t, 5*time.Second, cfg.Registry.Timeout)
	require.Equal(t, time.Minute, cfg.Storage.Timeout)
	require.Equal(t, "all", cfg.Storage.WritePolicy)
	require.Len(t, cfg.Storage.Backends, 2)
	require.Equal(t, "kubo", cfg.Storage.Backends[1].ID)
	require.Equal(t, "true", cfg.Storage.Backends[1].Config["ipfs-offline"])
	require.Equal(t, ProverGroth16, cfg.Prover.Backend)
	require.Equal(t, uint64(5), cfg.Retry.MaxRetries)
	require.Equal(t, 50*time.Millisecond, cfg.Retry.BaseDelay)
	// Unset keys keep their defaults.
	require.Equal(t, Default().Concurrency, cfg.Concurrency)

	opts := cfg.ProtocolOptions(zerolog.Nop(), nil)
	require.Equal(t, commitment.Unbound, opts.Binding)
	require.Equal(t, 5*time.Second, opts.RegistryTimeout)
	require.Equal(t, time.Minute, opts.StorageTimeout)
	require.Equal(t, uint64(5), opts.Retry.MaxRetries)
}

func TestDecodeEmptyDocumentIsDefault(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestDecodeRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":      "registry: {backend: ledger, ledger_dir: /x, colour: blue}\n",
		"binding":          "binding: sideways\n",
		"registry backend": "registry: {backend: sql}\n",
		"grpc target":      "registry: {backend: grpc}\n",
		"write policy":     "storage: {write_policy: some}\n",
		"no backends":      "storage: {backends: []}\n",
		"prover":           "prover: {backend: plonk}\n",
		"log level":        "log: {level: loud}\n",
		"log format":       "log: {format: xml}\n",
		"bad duration":     "retry: {base_delay: soon}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestMarshalDecodes(t *testing.T) {
	cfg := Default()
	cfg.Binding = commitment.Unbound
	cfg.Registry.Timeout = 7 * time.Second

	b, err := cfg.Marshal()
	require.NoError(t, err)
	require.Contains(t, string(b), "binding: unbound")

	got, err := Decode(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestOpenCollaborators(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Registry.LedgerDir = filepath.Join(dir, "ledger")
	cfg.Storage.Backends[0].Config["unixfs-dir"] = filepath.Join(dir, "blocks")

	reg, closeReg, err := cfg.OpenRegistry(zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &ledger.Ledger{}, reg)
	require.NoError(t, closeReg())

	cas, closeCAS, err := cfg.OpenStorage(casregistry.UsageCLI, "")
	require.NoError(t, err)
	require.IsType(t, &unixfs.CAS{}, cas)
	require.NoError(t, closeCAS())

	engine, err := cfg.Engine()
	require.NoError(t, err)
	require.IsType(t, commitment.NativeProver{}, engine.Prover)
}

func TestGroth16EngineNeedsKeys(t *testing.T) {
	cfg := Default()
	cfg.Prover = ProverConfig{Backend: ProverGroth16, KeyDir: t.TempDir()}
	_, err := cfg.Engine()
	require.ErrorIs(t, err, commitment.ErrMissingAssets)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"message":"shown"`)

	_, err = LogConfig{Level: "nope"}.NewLogger(&buf)
	require.Error(t, err)
}
