package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"xdao.co/docreg/config"
	"xdao.co/docreg/keys"
	"xdao.co/docreg/protocol"
	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/casregistry"

	_ "xdao.co/docreg/storage/grpccas"
	_ "xdao.co/docreg/storage/ipfs"
	_ "xdao.co/docreg/storage/localfs"
	_ "xdao.co/docreg/storage/unixfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "digest":
		return cmdDigest(args[1:], out, errOut)
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "circuit":
		return cmdCircuit(args[1:], out, errOut)
	case "backends":
		return cmdBackends(args[1:], out, errOut)
	case "register":
		return cmdRegister(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "verify-cid":
		return cmdVerifyCID(args[1:], out, errOut)
	case "download":
		return cmdDownload(args[1:], out, errOut)
	case "list":
		return cmdList(args[1:], out, errOut)
	case "export":
		return cmdExport(args[1:], out, errOut)
	case "import":
		return cmdImport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "docreg: register documents and prove ownership without revealing the secret")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  docreg digest <file>")
	fmt.Fprintln(w, "  docreg cid <file>")
	fmt.Fprintln(w, "  docreg key init --name <name> [--key-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  docreg key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  docreg key list")
	fmt.Fprintln(w, "  docreg key address --name <name> [--role <role>]")
	fmt.Fprintln(w, "  docreg circuit setup [--key-dir <dir>]")
	fmt.Fprintln(w, "  docreg backends")
	fmt.Fprintln(w, "  docreg register <file> --secret <s> [--password <p>] (--signer <name> [--signer-role <role>] | --key-hex <64hex> | --key-file <path>)")
	fmt.Fprintln(w, "  docreg verify <file> --secret <s>")
	fmt.Fprintln(w, "  docreg verify-cid <cid> [<cid> ...] --secret <s>")
	fmt.Fprintln(w, "  docreg download <cid> [--password <p>] [--out <file>]")
	fmt.Fprintln(w, "  docreg list (--uploader <0x address> | --signer <name> [--signer-role <role>])")
	fmt.Fprintln(w, "  docreg export (--uploader <0x address> | --signer <name>) --out <bundle.tar> [--no-index]")
	fmt.Fprintln(w, "  docreg import <bundle.tar> [--ignore-unknown]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common flags:")
	fmt.Fprintln(w, "  --config <file>        YAML configuration (default: $DOCREG_CONFIG, else built-in defaults)")
	fmt.Fprintln(w, "  --keys-dir <dir>       key store (default ~/.xdao/docreg/keys)")
	fmt.Fprintln(w, "  --metrics-file <file>  write flow metrics in Prometheus text format on exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - --secret and --password default to $DOCREG_SECRET and $DOCREG_PASSWORD")
	fmt.Fprintln(w, "  - verify-cid under an unbound deployment is replayable: a leaked secret verifies every identifier registered with it")
	fmt.Fprintln(w, "  - exit codes: 1 failure, 2 usage/input, 3 duplicate, 4 not registered, 5 secret mismatch, 6 wrong password, 7 network unavailable")
}

type globals struct {
	configPath  string
	keysDir     string
	metricsFile string
}

func addGlobals(fs *pflag.FlagSet) *globals {
	g := &globals{}
	fs.StringVar(&g.configPath, "config", os.Getenv("DOCREG_CONFIG"), "YAML configuration file")
	fs.StringVar(&g.keysDir, "keys-dir", "", "Key store directory")
	fs.StringVar(&g.metricsFile, "metrics-file", "", "Write flow metrics in Prometheus text format to this file on exit")
	return g
}

func newFlagSet(name string, errOut io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.SortFlags = false
	return fs
}

func (g *globals) loadConfig() (config.Config, error) {
	if g.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(g.configPath)
}

func (g *globals) keyStore() (*keys.KeyStore, error) {
	return keys.CreateKeyStore(g.keysDir)
}

// session holds the collaborators one command works with.
type session struct {
	cfg     config.Config
	log     zerolog.Logger
	proto   *protocol.Protocol
	cas     storage.CAS
	metrics *prometheus.Registry
	file    string
	closers []func() error
}

func (g *globals) open(errOut io.Writer) (*session, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := cfg.Log.NewLogger(errOut)
	if err != nil {
		return nil, err
	}
	gnarklogger.Set(log)

	s := &session{cfg: cfg, log: log, file: g.metricsFile}
	reg, closeReg, err := cfg.OpenRegistry(log)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	s.closers = append(s.closers, closeReg)

	cas, closeCAS, err := cfg.OpenStorage(casregistry.UsageCLI, "")
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	s.closers = append(s.closers, closeCAS)
	s.cas = cas

	engine, err := cfg.Engine()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open prover: %w", err)
	}

	var m *protocol.Metrics
	if s.file != "" {
		s.metrics = prometheus.NewRegistry()
		m = protocol.NewMetrics(s.metrics)
	}
	s.proto, err = protocol.New(reg, cas, engine, cfg.ProtocolOptions(log, m))
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	if s.metrics != nil {
		errs = append(errs, prometheus.WriteToTextfile(s.file, s.metrics))
	}
	return errors.Join(errs...)
}

// report prints a flow failure and returns the matching exit code.
func report(errOut io.Writer, err error) int {
	var pe *protocol.Error
	if errors.As(err, &pe) {
		fmt.Fprintf(errOut, "%s (%s): %v\n", pe.Kind, pe.Step, err)
	} else {
		fmt.Fprintln(errOut, err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch protocol.KindOf(err) {
	case protocol.KindInput:
		return 2
	case protocol.KindDuplicate:
		return 3
	case protocol.KindNotRegistered:
		return 4
	case protocol.KindSecretMismatch:
		return 5
	case protocol.KindAuthentication:
		return 6
	case protocol.KindNetworkUnavailable:
		return 7
	default:
		return 1
	}
}
