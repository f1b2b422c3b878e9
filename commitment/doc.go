// Package commitment derives commitment values that prove knowledge of a
// secret without revealing it.
//
// A secret (optionally bound to a file digest) is mapped to a preimage in the
// BN254 scalar field. The preimage is the sole private input of a fixed
// circuit that exposes MiMC(preimage) as its only public output; that output,
// rendered as "0x" + 64 lowercase hex digits, is the commitment recorded in
// the registry.
//
// Two binding modes exist and must not be mixed within one deployment:
//   - Unbound: preimage = secret bytes as a big-endian integer mod r.
//   - Bound:   preimage = SHA-256(digest.Hex() + secret) as a big-endian integer mod r.
//
// Bound commitments tie the secret to one file; an unbound commitment can be
// replayed by anyone holding the secret against any record that used it.
package commitment
