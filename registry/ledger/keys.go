package ledger

import (
	"encoding/binary"

	"xdao.co/docreg/digest"
	"xdao.co/docreg/registry"
)

var (
	prefixDoc      = []byte("doc/")
	prefixDigest   = []byte("digest/")
	prefixCID      = []byte("cid/")
	prefixUploader = []byte("uploader/")
	keySeq         = []byte("meta/seq")
)

func encodeID(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func decodeID(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

func join(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func docKey(id uint64) []byte          { return join(prefixDoc, encodeID(id)) }
func digestKey(d digest.Digest) []byte { return join(prefixDigest, d[:]) }
func cidKey(identifier string) []byte  { return join(prefixCID, []byte(identifier)) }
func uploaderPrefix(a registry.Address) []byte {
	return join(prefixUploader, a[:], []byte("/"))
}
func uploaderKey(a registry.Address, id uint64) []byte {
	return join(uploaderPrefix(a), encodeID(id))
}
