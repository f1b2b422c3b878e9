// Package cidutil computes content identifiers with the same parameters a
// Kubo node uses for `ipfs add --cid-version=1 --raw-leaves`: fixed 256KiB
// chunks, a balanced DAG of at most 174 links per node, raw leaves and
// sha2-256 multihashes.
package cidutil

import (
	"bytes"
	"fmt"
	"io"

	chunk "github.com/ipfs/boxo/chunker"
	"github.com/ipfs/boxo/ipld/unixfs/importer/balanced"
	"github.com/ipfs/boxo/ipld/unixfs/importer/helpers"
	"github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
	"github.com/multiformats/go-multihash"
)

// ChunkSize is the fixed leaf size in bytes.
const ChunkSize = int(chunk.DefaultBlockSize)

// LinksPerNode is the fan-out of internal DAG nodes.
var LinksPerNode = helpers.DefaultLinksPerBlock

// Builder returns the CID builder used for internal dag-pb nodes. Leaves are
// re-coded as raw by the importer.
func Builder() cid.Builder {
	return cid.V1Builder{Codec: cid.DagProtobuf, MhType: multihash.SHA2_256, MhLength: -1}
}

// Import chunks r into dag and returns the root identifier.
func Import(r io.Reader, dag ipld.DAGService) (cid.Cid, error) {
	params := helpers.DagBuilderParams{
		Dagserv:    dag,
		RawLeaves:  true,
		Maxlinks:   LinksPerNode,
		CidBuilder: Builder(),
	}
	db, err := params.New(chunk.NewSizeSplitter(r, int64(ChunkSize)))
	if err != nil {
		return cid.Undef, fmt.Errorf("cidutil: dag builder: %w", err)
	}
	root, err := balanced.Layout(db)
	if err != nil {
		return cid.Undef, fmt.Errorf("cidutil: layout: %w", err)
	}
	return root.Cid(), nil
}

// Compute returns the identifier r would receive if stored, retaining nothing.
func Compute(r io.Reader) (cid.Cid, error) {
	return Import(r, discard{})
}

func ComputeBytes(b []byte) (cid.Cid, error) {
	return Compute(bytes.NewReader(b))
}

// Parse decodes an identifier string.
func Parse(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	return c, nil
}
