// Command cascli pokes at a CAS backend directly, bypassing the registry.
// It is meant for walkthroughs and for checking what a storage daemon holds.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/pflag"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/casregistry"

	_ "xdao.co/docreg/storage/grpccas"
	_ "xdao.co/docreg/storage/ipfs"
	_ "xdao.co/docreg/storage/localfs"
	_ "xdao.co/docreg/storage/unixfs"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "put":
		return cmdPut(ctx, args[1:], out, errOut)
	case "get":
		return cmdGet(ctx, args[1:], out, errOut)
	case "has":
		return cmdHas(ctx, args[1:], out, errOut)
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
	fmt.Fprintln(w, "cascli: minimal CAS tool for walkthroughs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cascli put --backend localfs --localfs-dir <dir> <file>")
	fmt.Fprintln(w, "  cascli get --backend localfs --localfs-dir <dir> --cid <cid> [--out <file>]")
	fmt.Fprintln(w, "  cascli has --backend grpc --grpc-target <host:port> <cid> [<cid> ...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - ipfs backend shells out to the local Kubo 'ipfs' CLI")
	fmt.Fprintln(w, "  - grpc backend talks to docreg-casd")
	fmt.Fprintln(w, "  - identifiers are UnixFS CIDv1 (raw leaves), the same 'docreg cid' prints")
	fmt.Fprintln(w, "  - --list-backends prints the backends this build supports")
}

type commonFlags struct {
	fs           *pflag.FlagSet
	backend      string
	listBackends bool
}

func newCommon(name string, errOut io.Writer) *commonFlags {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(errOut)
	c := &commonFlags{fs: fs}
	fs.StringVar(&c.backend, "backend", "localfs", "CAS backend name")
	fs.BoolVar(&c.listBackends, "list-backends", false, "List supported backends and exit")
	casregistry.RegisterFlags(fs, casregistry.UsageCLI)
	return c
}

func (c *commonFlags) openCAS() (storage.CAS, func() error, error) {
	return casregistry.OpenFromFlags(c.fs, c.backend, casregistry.UsageCLI)
}

func printBackends(w io.Writer) {
	for _, b := range casregistry.List(casregistry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(w, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Name, b.Description)
	}
}

func cmdPut(ctx context.Context, args []string, out io.Writer, errOut io.Writer) int {
	c := newCommon("put", errOut)
	if err := c.fs.Parse(args); err != nil {
		return 2
	}
	if c.listBackends {
		printBackends(out)
		return 0
	}
	if c.fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: cascli put [common flags] <file>")
		return 2
	}

	cas, closeFn, err := c.openCAS()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	p := c.fs.Arg(0)
	b, err := os.ReadFile(p)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(p), err)
		return 1
	}
	id, err := cas.Put(ctx, b)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id.String())
	return 0
}

func cmdGet(ctx context.Context, args []string, out io.Writer, errOut io.Writer) int {
	c := newCommon("get", errOut)
	var cidStr, outPath string
	c.fs.StringVar(&cidStr, "cid", "", "CID to fetch")
	c.fs.StringVar(&outPath, "out", "", "Output file (optional; default stdout)")

	if err := c.fs.Parse(args); err != nil {
		return 2
	}
	if c.listBackends {
		printBackends(out)
		return 0
	}
	if cidStr == "" {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}
	if c.fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: cascli get [common flags] --cid <cid> [--out <file>]")
		return 2
	}
	id, err := cidutil.Parse(cidStr)
	if err != nil {
		fmt.Fprintln(errOut, storage.ErrInvalidCID)
		return 2
	}

	cas, closeFn, err := c.openCAS()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	b, err := cas.Get(ctx, id)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	if outPath == "" {
		_, _ = out.Write(b)
		return 0
	}
	if err := os.WriteFile(outPath, b, 0o600); err != nil {
		fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
		return 1
	}
	return 0
}

// cmdHas exits 1 when any identifier is missing.
func cmdHas(ctx context.Context, args []string, out io.Writer, errOut io.Writer) int {
	c := newCommon("has", errOut)
	if err := c.fs.Parse(args); err != nil {
		return 2
	}
	if c.listBackends {
		printBackends(out)
		return 0
	}
	if c.fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: cascli has [common flags] <cid> [<cid> ...]")
		return 2
	}

	cas, closeFn, err := c.openCAS()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	code := 0
	for _, s := range c.fs.Args() {
		id, err := cidutil.Parse(s)
		if err != nil {
			fmt.Fprintf(out, "%s\tinvalid\n", s)
			code = 1
			continue
		}
		if cas.Has(ctx, id) {
			fmt.Fprintf(out, "%s\tpresent\n", id)
			continue
		}
		fmt.Fprintf(out, "%s\tmissing\n", id)
		code = 1
	}
	return code
}
