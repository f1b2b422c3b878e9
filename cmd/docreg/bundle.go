package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/registry"
	"xdao.co/docreg/storage/bundle"
)

func cmdExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("export", errOut)
	g := addGlobals(fs)
	signer := addSignerFlags(fs)
	var uploaderHex, outPath string
	var noIndex bool
	fs.StringVar(&uploaderHex, "uploader", "", "Uploader address (0x...)")
	fs.StringVar(&outPath, "out", "", "Bundle file to write (required)")
	fs.BoolVar(&noIndex, "no-index", false, "Omit index.cbor")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
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
		ids := make([]cid.Cid, 0, len(docs))
		records := make([]registry.Record, 0, len(docs))
		for _, d := range docs {
			if d.Err != nil {
				return report(errOut, d.Err)
			}
			id, err := cidutil.Parse(d.Record.Identifier)
			if err != nil {
				fmt.Fprintf(errOut, "document %d: %v\n", d.ID, err)
				return 1
			}
			ids = append(ids, id)
			records = append(records, d.Record)
		}

		f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			fmt.Fprintf(errOut, "create --out: %v\n", err)
			return 1
		}
		err = bundle.Export(ctx, f, s.cas, ids, bundle.ExportOptions{Records: records, IncludeIndex: !noIndex})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fmt.Fprintf(errOut, "export: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "Exported %d documents to %s\n", len(ids), outPath)
		return 0
	})
}

func cmdImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("import", errOut)
	g := addGlobals(fs)
	var ignoreUnknown bool
	fs.BoolVar(&ignoreUnknown, "ignore-unknown", false, "Skip unknown bundle entries")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: docreg import <bundle.tar> [--ignore-unknown]")
		return 2
	}

	return withSession(g, errOut, func(ctx context.Context, s *session) int {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "open bundle: %v\n", err)
			return 1
		}
		defer f.Close()

		res, err := bundle.ImportWithOptions(ctx, f, s.cas, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
		if err != nil {
			fmt.Fprintf(errOut, "import: %v\n", err)
			return 1
		}
		for _, id := range res.Identifiers {
			fmt.Fprintln(out, id)
		}
		if res.Index != nil {
			s.log.Debug().Int("records", len(res.Index.Records)).Msg("bundle index")
		}
		return 0
	})
}
