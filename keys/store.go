package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xdao.co/docreg/registry"
)

// KeyStore is a directory of named signing identities.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Identifier string
	Address    registry.Address
	Roles      []string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "docreg", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) getRootKeyFilePath(identifier string) string {
	return filepath.Join(ks.Directory, identifier, "root.key")
}

func (ks *KeyStore) getRoleKeyFilePath(identifier, role string) string {
	return filepath.Join(ks.Directory, identifier, "roles", role+".key")
}

func CheckKeyName(identifier string) error {
	if identifier == "" {
		return errors.New("identifier cannot be empty")
	}
	for _, char := range identifier {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in identifier", char)
	}
	return nil
}

func CheckRole(role string) error {
	if role == "" {
		return errors.New("role cannot be empty")
	}
	for _, char := range role {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in role", char)
	}
	return nil
}

func (ks *KeyStore) saveKeyToFile(filePath string, key []byte, overwrite bool) error {
	if len(key) != KeySize {
		return fmt.Errorf("expected key length of %d bytes", KeySize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(key) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadKeyFromFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseKeyHex(strings.TrimSpace(string(data)))
}

// InitializeIdentity writes a root key for name. A nil key generates one.
func (ks *KeyStore) InitializeIdentity(name string, key []byte, overwrite bool) (Identity, string, error) {
	if err := CheckKeyName(name); err != nil {
		return Identity{}, "", err
	}
	if key == nil {
		var err error
		if key, err = GenerateKey(); err != nil {
			return Identity{}, "", err
		}
	}
	id, err := NewIdentity(name, "", key)
	if err != nil {
		return Identity{}, "", err
	}
	filePath := ks.getRootKeyFilePath(name)
	if err := ks.saveKeyToFile(filePath, key, overwrite); err != nil {
		return Identity{}, "", err
	}
	return id, filePath, nil
}

// DeriveRoleIdentity derives and stores the role key of an existing identity.
func (ks *KeyStore) DeriveRoleIdentity(from, role string, overwrite bool) (Identity, string, error) {
	if err := CheckKeyName(from); err != nil {
		return Identity{}, "", err
	}
	if err := CheckRole(role); err != nil {
		return Identity{}, "", err
	}
	rootKey, err := ks.loadKeyFromFile(ks.getRootKeyFilePath(from))
	if err != nil {
		return Identity{}, "", err
	}
	roleKey, err := DeriveRoleSeed(rootKey, role)
	if err != nil {
		return Identity{}, "", err
	}
	id, err := NewIdentity(from, role, roleKey)
	if err != nil {
		return Identity{}, "", err
	}
	filePath := ks.getRoleKeyFilePath(from, role)
	if err := ks.saveKeyToFile(filePath, roleKey, overwrite); err != nil {
		return Identity{}, "", err
	}
	return id, filePath, nil
}

// LoadIdentity loads the root identity of name, or its role key when role
// is non-empty.
func (ks *KeyStore) LoadIdentity(name, role string) (Identity, error) {
	if err := CheckKeyName(name); err != nil {
		return Identity{}, err
	}
	path := ks.getRootKeyFilePath(name)
	if role != "" {
		if err := CheckRole(role); err != nil {
			return Identity{}, err
		}
		path = ks.getRoleKeyFilePath(name, role)
	}
	key, err := ks.loadKeyFromFile(path)
	if err != nil {
		return Identity{}, err
	}
	return NewIdentity(name, role, key)
}

// LoadSigner resolves an identity from, in order: a hex key, a key file, or
// a stored name and optional role.
func (ks *KeyStore) LoadSigner(keyHex, name, role, keyFile string) (Identity, error) {
	if keyHex != "" {
		key, err := ParseKeyHex(keyHex)
		if err != nil {
			return Identity{}, err
		}
		return NewIdentity("", "", key)
	}
	if keyFile != "" {
		key, err := ks.loadKeyFromFile(keyFile)
		if err != nil {
			return Identity{}, err
		}
		return NewIdentity("", "", key)
	}
	if name != "" {
		return ks.LoadIdentity(name, role)
	}
	return Identity{}, errors.New("no signer provided")
}

func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var identifiers []string
	for _, entry := range entries {
		if entry.IsDir() {
			identifiers = append(identifiers, entry.Name())
		}
	}
	sort.Strings(identifiers)

	var result []KeyEntry
	for _, identifier := range identifiers {
		rolesDir := filepath.Join(ks.Directory, identifier, "roles")
		roleEntries, rerr := os.ReadDir(rolesDir)
		var roles []string
		if rerr == nil {
			for _, roleEntry := range roleEntries {
				if roleEntry.IsDir() {
					continue
				}
				if strings.HasSuffix(roleEntry.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(roleEntry.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		entry := KeyEntry{Identifier: identifier, Roles: roles}
		if id, err := ks.LoadIdentity(identifier, ""); err == nil {
			entry.Address = id.Address()
		}
		result = append(result, entry)
	}
	return result, nil
}
