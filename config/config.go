// Package config loads the docreg YAML configuration and opens the
// collaborators it names.
//
// Example:
//
//	binding: bound
//	registry:
//	  backend: ledger
//	  ledger_dir: /var/lib/docreg/ledger
//	  timeout: 30s
//	storage:
//	  timeout: 1m
//	  write_policy: first
//	  backends:
//	    - name: unixfs
//	      config: {unixfs-dir: /var/lib/docreg/blocks}
//	prover:
//	  backend: groth16
//	  key_dir: /var/lib/docreg/circuit
//	retry: {max_retries: 3, base_delay: 200ms}
//	log: {level: info, format: console}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"xdao.co/docreg/commitment"
	"xdao.co/docreg/protocol"
	"xdao.co/docreg/storage/casconfig"
)

const (
	RegistryLedger = "ledger"
	RegistryGRPC   = "grpc"

	ProverNative  = "native"
	ProverGroth16 = "groth16"
)

type Config struct {
	Binding     commitment.Binding `yaml:"binding"`
	Registry    RegistryConfig     `yaml:"registry"`
	Storage     StorageConfig      `yaml:"storage"`
	Prover      ProverConfig       `yaml:"prover"`
	Retry       RetryConfig        `yaml:"retry"`
	Concurrency int                `yaml:"concurrency"`
	Log         LogConfig          `yaml:"log"`
}

type RegistryConfig struct {
	// Backend is "ledger" (local badger directory) or "grpc".
	Backend    string        `yaml:"backend"`
	LedgerDir  string        `yaml:"ledger_dir,omitempty"`
	GRPCTarget string        `yaml:"grpc_target,omitempty"`
	Timeout    time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	casconfig.Config `yaml:",inline"`
}

type ProverConfig struct {
	// Backend is "native" (MiMC evaluated directly) or "groth16".
	Backend string `yaml:"backend"`
	// KeyDir holds the groth16 proving and verifying keys.
	KeyDir string `yaml:"key_dir,omitempty"`
}

type RetryConfig struct {
	MaxRetries uint64        `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration for a single user: a ledger and a block
// store under ~/.xdao/docreg, the native prover and bound commitments.
func Default() Config {
	dir := "docreg-data"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".xdao", "docreg")
	}
	return Config{
		Binding: commitment.Bound,
		Registry: RegistryConfig{
			Backend:   RegistryLedger,
			LedgerDir: filepath.Join(dir, "ledger"),
			Timeout:   protocol.DefaultTimeout,
		},
		Storage: StorageConfig{
			Timeout: protocol.DefaultTimeout,
			Config: casconfig.Config{
				WritePolicy: "first",
				Backends: []casconfig.BackendConfig{{
					Name:   "unixfs",
					Config: map[string]string{"unixfs-dir": filepath.Join(dir, "blocks")},
				}},
			},
		},
		Prover:      ProverConfig{Backend: ProverNative, KeyDir: filepath.Join(dir, "circuit")},
		Retry:       RetryConfig{MaxRetries: protocol.DefaultMaxRetries, BaseDelay: protocol.DefaultBaseDelay},
		Concurrency: protocol.DefaultConcurrency,
		Log:         LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path over Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config: empty config path")
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a YAML document over Default.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Binding {
	case commitment.Bound, commitment.Unbound:
	default:
		return fmt.Errorf("config: invalid binding %s", c.Binding)
	}

	switch c.Registry.Backend {
	case RegistryLedger:
		if c.Registry.LedgerDir == "" {
			return errors.New("config: registry.ledger_dir is required for the ledger backend")
		}
	case RegistryGRPC:
		if c.Registry.GRPCTarget == "" {
			return errors.New("config: registry.grpc_target is required for the grpc backend")
		}
	default:
		return fmt.Errorf("config: invalid registry.backend %q", c.Registry.Backend)
	}
	if c.Registry.Timeout < 0 || c.Storage.Timeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}

	if err := c.Storage.Config.Validate(); err != nil {
		return err
	}

	switch c.Prover.Backend {
	case ProverNative:
	case ProverGroth16:
		if c.Prover.KeyDir == "" {
			return errors.New("config: prover.key_dir is required for the groth16 backend")
		}
	default:
		return fmt.Errorf("config: invalid prover.backend %q", c.Prover.Backend)
	}

	if c.Retry.BaseDelay < 0 {
		return errors.New("config: retry.base_delay must not be negative")
	}
	if c.Concurrency < 0 {
		return errors.New("config: concurrency must not be negative")
	}
	return c.Log.validate()
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
