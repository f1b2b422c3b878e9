package keys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/docreg/registry"
)

func TestInitializeAndLoadIdentity(t *testing.T) {
	ks := &KeyStore{Directory: t.TempDir()}

	id, path, err := ks.InitializeIdentity("alice", nil, false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(ks.Directory, "alice", "root.key"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := ks.LoadIdentity("alice", "")
	require.NoError(t, err)
	require.Equal(t, id.Address(), loaded.Address())

	_, _, err = ks.InitializeIdentity("alice", nil, false)
	require.Error(t, err, "existing key must not be overwritten")

	_, _, err = ks.InitializeIdentity("alice", nil, true)
	require.NoError(t, err)
}

func TestDeriveRoleIdentity(t *testing.T) {
	ks := &KeyStore{Directory: t.TempDir()}
	root, _, err := ks.InitializeIdentity("bob", nil, false)
	require.NoError(t, err)

	role, _, err := ks.DeriveRoleIdentity("bob", "uploader", false)
	require.NoError(t, err)
	require.NotEqual(t, root.Address(), role.Address())

	again, err := ks.LoadIdentity("bob", "uploader")
	require.NoError(t, err)
	require.Equal(t, role.Address(), again.Address())

	entries, err := ks.ListKeys()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "bob", entries[0].Identifier)
	require.Equal(t, root.Address(), entries[0].Address)
	require.Equal(t, []string{"uploader"}, entries[0].Roles)
}

func TestIdentitySignsRegistryRequests(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	id, err := NewIdentity("carol", "", key)
	require.NoError(t, err)

	hash := make([]byte, 32)
	hash[0] = 1
	sig, err := id.Sign(hash)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	var _ registry.Signer = id
}

func TestLoadSignerPrecedence(t *testing.T) {
	ks := &KeyStore{Directory: t.TempDir()}
	stored, path, err := ks.InitializeIdentity("dave", nil, false)
	require.NoError(t, err)

	fromHex, err := ks.LoadSigner("0x"+stored.PrivateKeyHex(), "", "", "")
	require.NoError(t, err)
	require.Equal(t, stored.Address(), fromHex.Address())

	fromFile, err := ks.LoadSigner("", "", "", path)
	require.NoError(t, err)
	require.Equal(t, stored.Address(), fromFile.Address())

	byName, err := ks.LoadSigner("", "dave", "", "")
	require.NoError(t, err)
	require.Equal(t, stored.Address(), byName.Address())

	_, err = ks.LoadSigner("", "", "", "")
	require.Error(t, err)
}

func TestParseKeyHex(t *testing.T) {
	_, err := ParseKeyHex("zz")
	require.Error(t, err)
	_, err = ParseKeyHex("00")
	require.Error(t, err)
	zero := make([]byte, KeySize*2)
	for i := range zero {
		zero[i] = '0'
	}
	_, err = ParseKeyHex(string(zero))
	require.Error(t, err, "zero is not a valid scalar")
}

func TestCheckKeyName(t *testing.T) {
	require.NoError(t, CheckKeyName("team-a_1"))
	require.Error(t, CheckKeyName(""))
	require.Error(t, CheckKeyName("../etc"))
}
