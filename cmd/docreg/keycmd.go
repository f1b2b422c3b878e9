package main

import (
	"fmt"
	"io"
	"strings"

	"xdao.co/docreg/keys"
)

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "address":
		return cmdKeyAddress(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "docreg key: local signing identities")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  docreg key init --name <name> [--key-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  docreg key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  docreg key list")
	fmt.Fprintln(w, "  docreg key address --name <name> [--role <role>]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("key init", errOut)
	g := addGlobals(fs)

	var name string
	var keyHex string
	var force bool

	fs.StringVar(&name, "name", "", "Identity name (directory in the key store)")
	fs.StringVar(&keyHex, "key-hex", "", "Optional secp256k1 private key as 64 hex chars")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	var key []byte
	if keyHex != "" {
		var err error
		key, err = keys.ParseKeyHex(keyHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --key-hex: %v\n", err)
			return 2
		}
	}
	ks, err := g.keyStore()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	id, path, err := ks.InitializeIdentity(name, key, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created identity: %s\n", id.Address().Hex())
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("key derive", errOut)
	g := addGlobals(fs)

	var from string
	var role string
	var force bool

	fs.StringVar(&from, "from", "", "Root identity name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. notary, archive)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" || role == "" {
		fmt.Fprintln(errOut, "missing --from or --role")
		return 2
	}
	ks, err := g.keyStore()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	id, path, err := ks.DeriveRoleIdentity(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created role identity: %s\n", id.Address().Hex())
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("key list", errOut)
	g := addGlobals(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := g.keyStore()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		line := e.Identifier + "\t" + e.Address.Hex()
		if len(e.Roles) > 0 {
			line += "\troles=" + strings.Join(e.Roles, ",")
		}
		fmt.Fprintln(out, line)
	}
	return 0
}

func cmdKeyAddress(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("key address", errOut)
	g := addGlobals(fs)

	var name string
	var role string
	fs.StringVar(&name, "name", "", "Identity name")
	fs.StringVar(&role, "role", "", "Optional role")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	ks, err := g.keyStore()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	id, err := ks.LoadIdentity(name, role)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, id.Address().Hex())
	return 0
}
