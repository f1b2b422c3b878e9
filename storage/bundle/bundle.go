// Package bundle moves stored payloads between CAS backends as a single TAR
// file, for example from a laptop's local store to a storage daemon.
//
// Layout:
//
//	blocks/<identifier>   one stored payload per registered document
//	index.cbor            optional: format version, payload sizes and the
//	                      registry records the payloads belong to
//
// The index is informational. Import trusts only the payload bytes, each of
// which must re-address to its entry name.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/registry"
	"xdao.co/docreg/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

const indexName = "index.cbor"

var epoch0 = time.Unix(0, 0).UTC()

type ExportOptions struct {
	// Records are written to the index. They are not validated against the
	// exported payloads.
	Records []registry.Record
	// IncludeIndex controls whether index.cbor is written.
	IncludeIndex bool
}

// Export writes a deterministic TAR bundle holding the payloads for ids.
//
// Entry order is lexicographic and TAR headers are normalized, so the same
// ids and records always produce the same bytes. Every payload is re-addressed
// before it is written.
func Export(ctx context.Context, w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	blocks := make([]indexBlock, 0, len(names))
	for _, s := range names {
		id := uniq[s]
		b, err := cas.Get(ctx, id)
		if err != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: get %s: %w", s, err)
		}
		got, err := cidutil.ComputeBytes(b)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if !got.Equals(id) {
			_ = tw.Close()
			return fmt.Errorf("%w: %s", storage.ErrCIDMismatch, s)
		}
		if err := writeFile(tw, "blocks/"+s, b); err != nil {
			_ = tw.Close()
			return err
		}
		blocks = append(blocks, indexBlock{Identifier: s, Size: len(b)})
	}

	if opts.IncludeIndex {
		records := append([]registry.Record(nil), opts.Records...)
		sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
		b, err := registry.Marshal(Index{Version: FormatVersion, Blocks: blocks, Records: records})
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, indexName, b); err != nil {
			_ = tw.Close()
			return err
		}
	}
	return tw.Close()
}

// Index is the decoded index.cbor.
type Index struct {
	Version int               `cbor:"1,keyasint"`
	Blocks  []indexBlock      `cbor:"2,keyasint"`
	Records []registry.Record `cbor:"3,keyasint,omitempty"`
}

type indexBlock struct {
	Identifier string `cbor:"1,keyasint"`
	Size       int    `cbor:"2,keyasint"`
}

type ImportOptions struct {
	// IgnoreUnknown skips unknown TAR entries instead of failing.
	IgnoreUnknown bool
}

// Imported lists what Import stored, plus the bundle's index when present.
type Imported struct {
	Identifiers []cid.Cid
	Index       *Index
}

// Import reads a bundle from r and stores every payload in cas. Unknown
// entries are an error.
func Import(ctx context.Context, r io.Reader, cas storage.CAS) (Imported, error) {
	return ImportWithOptions(ctx, r, cas, ImportOptions{})
}

// ImportWithOptions validates each payload against its entry name before
// storing it.
func ImportWithOptions(ctx context.Context, r io.Reader, cas storage.CAS, opts ImportOptions) (Imported, error) {
	var res Imported
	if cas == nil {
		return res, fmt.Errorf("bundle: nil CAS")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		h, err := tr.Next()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return res, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return res, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		if name == indexName {
			b, err := io.ReadAll(tr)
			if err != nil {
				return res, err
			}
			var idx Index
			if err := registry.Unmarshal(b, &idx); err != nil {
				return res, fmt.Errorf("bundle: index: %w", err)
			}
			res.Index = &idx
			continue
		}

		if !strings.HasPrefix(name, "blocks/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return res, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, err := cidutil.Parse(strings.TrimPrefix(name, "blocks/"))
		if err != nil {
			return res, storage.ErrInvalidCID
		}
		payload, err := io.ReadAll(tr)
		if err != nil {
			return res, err
		}
		got, err := cidutil.ComputeBytes(payload)
		if err != nil {
			return res, err
		}
		if !got.Equals(id) {
			return res, fmt.Errorf("%w: %s", storage.ErrCIDMismatch, id)
		}

		key := id.String()
		if _, ok := seen[key]; ok {
			return res, fmt.Errorf("bundle: duplicate block entry: %s", key)
		}
		seen[key] = struct{}{}

		putID, err := cas.Put(ctx, payload)
		if err != nil {
			return res, err
		}
		if !putID.Equals(id) {
			return res, storage.ErrCIDMismatch
		}
		res.Identifiers = append(res.Identifiers, id)
	}
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}

	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return strings.Join(parts, "/")
}
