package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/docreg/commitment"
	"xdao.co/docreg/protocol"
	"xdao.co/docreg/registry"
	"xdao.co/docreg/registry/grpcreg"
	"xdao.co/docreg/registry/ledger"
	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/casregistry"
)

func (l LogConfig) validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(l.Level)); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	switch l.Format {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("config: invalid log.format %q", l.Format)
	}
}

// NewLogger builds the process logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (zerolog.Logger, error) {
	if err := l.validate(); err != nil {
		return zerolog.Nop(), err
	}
	lvl, _ := zerolog.ParseLevel(strings.ToLower(l.Level))
	if l.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// OpenRegistry opens the configured registry. The returned close function is
// never nil.
func (c Config) OpenRegistry(log zerolog.Logger) (registry.Registry, func() error, error) {
	switch c.Registry.Backend {
	case RegistryLedger:
		l, err := ledger.Open(ledger.Options{Dir: c.Registry.LedgerDir, Logger: log})
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil
	case RegistryGRPC:
		cl, err := grpcreg.Dial(c.Registry.GRPCTarget, grpcreg.DialOptions{Timeout: c.Registry.Timeout})
		if err != nil {
			return nil, nil, err
		}
		cl.Timeout = c.Registry.Timeout
		return cl, cl.Close, nil
	default:
		return nil, nil, fmt.Errorf("config: invalid registry.backend %q", c.Registry.Backend)
	}
}

// OpenStorage opens the configured storage backends. Backend packages must be
// linked into the binary.
func (c Config) OpenStorage(usage casregistry.Usage, preferred string) (storage.CAS, func() error, error) {
	cas, closeFn, err := c.Storage.Config.Open(usage, preferred)
	if err != nil {
		return nil, nil, err
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return cas, closeFn, nil
}

// Engine returns the commitment engine for the configured prover. The
// groth16 prover needs keys produced by a prior setup.
func (c Config) Engine() (*commitment.Engine, error) {
	switch c.Prover.Backend {
	case ProverNative:
		return commitment.NewEngine(commitment.NativeProver{}), nil
	case ProverGroth16:
		p, err := commitment.LoadGroth16Prover(c.Prover.KeyDir)
		if err != nil {
			return nil, err
		}
		return commitment.NewEngine(p), nil
	default:
		return nil, fmt.Errorf("config: invalid prover.backend %q", c.Prover.Backend)
	}
}

// ProtocolOptions maps the configuration onto protocol options.
func (c Config) ProtocolOptions(log zerolog.Logger, metrics *protocol.Metrics) protocol.Options {
	return protocol.Options{
		Binding:         c.Binding,
		RegistryTimeout: c.Registry.Timeout,
		StorageTimeout:  c.Storage.Timeout,
		Retry:           protocol.Retry{MaxRetries: c.Retry.MaxRetries, BaseDelay: c.Retry.BaseDelay},
		Concurrency:     c.Concurrency,
		Logger:          log,
		Metrics:         metrics,
	}
}
