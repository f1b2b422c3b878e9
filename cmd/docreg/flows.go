package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"

	"xdao.co/docreg/protocol"
	"xdao.co/docreg/registry"
)

type signerFlags struct {
	name    string
	role    string
	keyHex  string
	keyFile string
}

func addSignerFlags(fs *pflag.FlagSet) *signerFlags {
	s := &signerFlags{}
	fs.StringVar(&s.name, "signer", "", "Identity name in the key store")
	fs.StringVar(&s.role, "signer-role", "", "Optional role of --signer")
	fs.StringVar(&s.keyHex, "key-hex", "", "secp256k1 private key as 64 hex chars")
	fs.StringVar(&s.keyFile, "key-file", "", "File holding a hex private key")
	return s
}

func (s *signerFlags) set() bool { return s.name != "" || s.keyHex != "" || s.keyFile != "" }

func (s *signerFlags) load(g *globals) (registry.Signer, error) {
	ks, err := g.keyStore()
	if err != nil {
		return nil, err
	}
	id, err := ks.LoadSigner(s.keyHex, s.name, s.role, s.keyFile)
	if err != nil {
		return nil, err
	}
	return id, nil
}

func secretFlag(fs *pflag.FlagSet, p *string) {
	fs.StringVar(p, "secret", os.Getenv("DOCREG_SECRET"), "Secret the commitment is derived from")
}

func passwordFlag(fs *pflag.FlagSet, p *string, usage string) {
	fs.StringVar(p, "password", os.Getenv("DOCREG_PASSWORD"), usage)
}

// interruptible returns a context canceled on SIGINT or SIGTERM.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func withSession(g *globals, errOut io.Writer, fn func(ctx context.Context, s *session) int) int {
	s, err := g.open(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	ctx, cancel := interruptible()
	defer cancel()

	code := fn(ctx, s)
	if err := s.Close(); err != nil {
		fmt.Fprintf(errOut, "close: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

func cmdRegister(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("register", errOut)
	g := addGlobals(fs)
	signer := addSignerFlags(fs)
	var secret, password string
	secretFlag(fs, &secret)
	passwordFlag(fs, &password, "Encrypt the stored copy with this password")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: docreg register <file> --secret <s> [--password <p>] --signer <name>")
		return 2
	}
	if !signer.set() {
		fmt.Fprintln(errOut, "missing signer: use --signer, --key-hex or --key-file")
		return 2
	}
	file, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read file: %v\n", err)
		return 1
	}
	id, err := signer.load(g)
	if err != nil {
		fmt.Fprintf(errOut, "load signer: %v\n", err)
		return 1
	}

	return withSession(g, errOut, func(ctx context.Context, s *session) int {
		rcpt, err := s.proto.Register(ctx, file, secret, password, id)
		if err != nil {
			return report(errOut, err)
		}
		fmt.Fprintf(out, "Document: %d\n", rcpt.ID)
		fmt.Fprintf(out, "Identifier: %s\n", rcpt.Identifier)
		fmt.Fprintf(out, "Commitment: %s\n", rcpt.Commitment)
		fmt.Fprintf(out, "Digest: %s\n", rcpt.Digest)
		fmt.Fprintf(out, "Encrypted: %t\n", rcpt.Encrypted)
		fmt.Fprintf(out, "Uploader: %s\n", rcpt.Uploader.Hex())
		return 0
	})
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("verify", errOut)
	g := addGlobals(fs)
	var secret string
	secretFlag(fs, &secret)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: docreg verify <file> --secret <s>")
		return 2
	}
	file, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read file: %v\n", err)
		return 1
	}

	return withSession(g, errOut, func(ctx context.Context, s *session) int {
		rec, err := s.proto.VerifyByFile(ctx, file, secret)
		if err != nil {
			return report(errOut, err)
		}
		printVerified(out, rec)
		return 0
	})
}

func cmdVerifyCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("verify-cid", errOut)
	g := addGlobals(fs)
	var secret string
	secretFlag(fs, &secret)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: docreg verify-cid <cid> [<cid> ...] --secret <s>")
		return 2
	}

	return withSession(g, errOut, func(ctx context.Context, s *session) int {
		if fs.NArg() == 1 {
			rec, err := s.proto.VerifyByIdentifier(ctx, fs.Arg(0), secret)
			if err != nil {
				return report(errOut, err)
			}
			printVerified(out, rec)
			return 0
		}

		results, err := s.proto.VerifyIdentifiers(ctx, fs.Args(), secret)
		if err != nil {
			return report(errOut, err)
		}
		code := 0
		for _, r := range results {
			if r.Verified() {
				fmt.Fprintf(out, "%s\tverified\tdocument=%d\tuploader=%s\n", r.Identifier, r.Record.ID, r.Record.Uploader.Hex())
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", r.Identifier, protocol.KindOf(r.Err))
			if code == 0 {
				code = exitCode(r.Err)
			}
		}
		return code
	})
}

func printVerified(out io.Writer, rec registry.Record) {
	fmt.Fprintln(out, "Verified")
	fmt.Fprintf(out, "Document: %d\n", rec.ID)
	fmt.Fprintf(out, "Identifier: %s\n", rec.Identifier)
	fmt.Fprintf(out, "Uploader: %s\n", rec.Uploader.Hex())
	fmt.Fprintf(out, "Registered: %s\n", rec.RegisteredAt.UTC().Format("2006-01-02T15:04:05Z"))
}

func cmdDownload(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("download", errOut)
	g := addGlobals(fs)
	var password, outPath string
	passwordFlag(fs, &password, "Password of an encrypted document")
	fs.StringVar(&outPath, "out", "", "Write the document here instead of stdout")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: docreg download <cid> [--password <p>] [--out <file>]")
		return 2
	}

	return withSession(g, errOut, func(ctx context.Context, s *session) int {
		b, _, err := s.proto.Download(ctx, fs.Arg(0), password)
		if err != nil {
			return report(errOut, err)
		}
		if outPath == "" {
			if _, err := out.Write(b); err != nil {
				fmt.Fprintf(errOut, "write: %v\n", err)
				return 1
			}
			return 0
		}
		if err := os.WriteFile(outPath, b, 0o600); err != nil {
			fmt.Fprintf(errOut, "write --out: %v\n", err)
			return 1
		}
		return 0
	})
}

func cmdList(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("list", errOut)
	g := addGlobals(fs)
	signer := addSignerFlags(fs)
	var uploaderHex string
	fs.StringVar(&uploaderHex, "uploader", "", "Uploader address (0x...)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	uploader, code := resolveUploader(g, uploaderHex, signer, errOut)
	if code != 0 {
		return code
	}

	return withSession(g, errOut, func(ctx context.Context, s *session) int {
		docs, err := s.proto.Documents(ctx, uploader)
		if err != nil {
			return report(errOut, err)
		}
		for _, d := range docs {
			if d.Err != nil {
				fmt.Fprintf(out, "%d\terror: %v\n", d.ID, d.Err)
				continue
			}
			fmt.Fprintf(out, "%d\t%s\tencrypted=%t\t%s\n",
				d.ID, d.Record.Identifier, d.Record.Encrypted, d.Record.RegisteredAt.UTC().Format("2006-01-02T15:04:05Z"))
		}
		return 0
	})
}

// resolveUploader picks the address from --uploader, else from the signer
// flags. A non-zero code is the exit status to return.
func resolveUploader(g *globals, uploaderHex string, signer *signerFlags, errOut io.Writer) (registry.Address, int) {
	switch {
	case uploaderHex != "":
		if !common.IsHexAddress(uploaderHex) {
			fmt.Fprintf(errOut, "invalid --uploader: %q\n", uploaderHex)
			return registry.Address{}, 2
		}
		return common.HexToAddress(uploaderHex), 0
	case signer.set():
		id, err := signer.load(g)
		if err != nil {
			fmt.Fprintf(errOut, "load signer: %v\n", err)
			return registry.Address{}, 1
		}
		return id.Address(), 0
	default:
		fmt.Fprintln(errOut, "missing uploader: use --uploader or --signer")
		return registry.Address{}, 2
	}
}
