package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	gnarklogger "github.com/consensys/gnark/logger"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/commitment"
	"xdao.co/docreg/digest"
	"xdao.co/docreg/storage/casregistry"
)

func cmdDigest(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("digest", errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: docreg digest <file>")
		return 2
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read file: %v\n", err)
		return 1
	}
	defer f.Close()
	d, err := digest.SumReader(f)
	if err != nil {
		fmt.Fprintf(errOut, "digest: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, d.Hex())
	return 0
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("cid", errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: docreg cid <file>")
		return 2
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read file: %v\n", err)
		return 1
	}
	defer f.Close()
	id, err := cidutil.Compute(f)
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, id)
	return 0
}

func cmdCircuit(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 || args[0] != "setup" {
		fmt.Fprintln(errOut, "usage: docreg circuit setup [--key-dir <dir>]")
		return 2
	}
	fs := newFlagSet("circuit setup", errOut)
	g := addGlobals(fs)
	var keyDir string
	fs.StringVar(&keyDir, "key-dir", "", "Directory for the proving and verifying keys (default: prover.key_dir)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	cfg, err := g.loadConfig()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if keyDir == "" {
		keyDir = cfg.Prover.KeyDir
	}
	log, err := cfg.Log.NewLogger(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	gnarklogger.Set(log)

	if err := os.MkdirAll(keyDir, 0o700); err != nil {
		fmt.Fprintf(errOut, "key dir: %v\n", err)
		return 1
	}
	if _, err := commitment.NewGroth16Prover(keyDir); err != nil {
		fmt.Fprintf(errOut, "circuit setup: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Proving key: %s\n", filepath.Join(keyDir, commitment.ProvingKeyFile))
	fmt.Fprintf(out, "Verifying key: %s\n", filepath.Join(keyDir, commitment.VerifyingKeyFile))
	return 0
}

func cmdBackends(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("backends", errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	for _, b := range casregistry.List(casregistry.UsageCLI) {
		if b.Description == "" {
			fmt.Fprintln(out, b.Name)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
	}
	return 0
}
