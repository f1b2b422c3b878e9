// Package keys stores secp256k1 signing identities on the local filesystem.
//
// An identity is a named root key plus any number of role keys derived from
// it deterministically. Keys are kept as hex in 0600 files under
// <Directory>/<name>/root.key and <Directory>/<name>/roles/<role>.key. An
// Identity signs registry submissions and its Ethereum-style address is the
// uploader recorded in the registry.
package keys
