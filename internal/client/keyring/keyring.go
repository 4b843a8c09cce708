// Package keyring stores signing keys on disk, sealed under a passphrase.
// Each identity is one file named after its public ID; only the argon2id
// stretched passphrase can recover the seed.
package keyring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/cryptox"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
)

const keyFileExt = ".key"

// keyFile is the on-disk envelope. Byte fields marshal as base64 through
// encoding/json.
type keyFile struct {
	UserID     string `json:"userId"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Keyring manages sealed key files under one directory.
type Keyring struct {
	dir string
}

func New(dir string) *Keyring {
	return &Keyring{dir: dir}
}

// Save seals the key's seed under passphrase and writes it to the keyring
// directory. The plaintext seed is wiped before returning.
func (k *Keyring) Save(key identity.SigningKey, passphrase []byte) error {
	if err := os.MkdirAll(k.dir, 0o700); err != nil {
		return fmt.Errorf("creating keyring dir: %w", err)
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	derived := cryptox.DeriveKey(passphrase, salt)
	defer common.WipeByteArray(derived)

	seed := key.Seed()
	defer common.WipeByteArray(seed)

	ciphertext, nonce, err := cryptox.Seal(seed, derived)
	if err != nil {
		return fmt.Errorf("sealing key: %w", err)
	}

	user := key.UserID()
	data, err := json.MarshalIndent(keyFile{
		UserID:     user.String(),
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(k.path(user), data, 0o600)
}

// Load opens the sealed key for user. A wrong passphrase fails GCM
// authentication and is indistinguishable from a corrupted file.
func (k *Keyring) Load(user identity.UserID, passphrase []byte) (identity.SigningKey, error) {
	data, err := os.ReadFile(k.path(user))
	if errors.Is(err, os.ErrNotExist) {
		return identity.SigningKey{}, common.ErrNotFound
	}
	if err != nil {
		return identity.SigningKey{}, fmt.Errorf("reading key file: %w", err)
	}

	var f keyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return identity.SigningKey{}, fmt.Errorf("parsing key file: %w", err)
	}

	derived := cryptox.DeriveKey(passphrase, f.Salt)
	defer common.WipeByteArray(derived)

	seed, err := cryptox.Open(f.Ciphertext, f.Nonce, derived)
	if err != nil {
		return identity.SigningKey{}, fmt.Errorf("unsealing key (wrong passphrase?): %w", err)
	}
	defer common.WipeByteArray(seed)

	key, err := identity.SigningKeyFromSeed(seed)
	if err != nil {
		return identity.SigningKey{}, err
	}

	// The file name could have been altered; trust the key material.
	if key.UserID() != user {
		return identity.SigningKey{}, fmt.Errorf("%w: key file does not match user id", common.ErrInvalidFormat)
	}
	return key, nil
}

// List returns the identities present in the keyring.
func (k *Keyring) List() ([]identity.UserID, error) {
	entries, err := os.ReadDir(k.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []identity.UserID
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), keyFileExt)
		if !ok || e.IsDir() {
			continue
		}
		user, err := identity.DecodeUserID(name)
		if err != nil {
			continue // not a key file
		}
		out = append(out, user)
	}
	return out, nil
}

func (k *Keyring) path(user identity.UserID) string {
	return filepath.Join(k.dir, user.String()+keyFileExt)
}
