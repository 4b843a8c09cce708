package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/dmitrijs2005/sigfeed/internal/common"
)

// SeedSize is the byte length of a signing-key seed.
const SeedSize = ed25519.SeedSize

// SigningKey holds the private half of an identity. Items are signed
// client-side; the server never sees a SigningKey.
type SigningKey struct {
	priv ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh identity.
func GenerateKeyPair() (UserID, SigningKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return UserID{}, SigningKey{}, fmt.Errorf("generating keypair: %w", err)
	}
	u, err := NewUserID(pub)
	if err != nil {
		return UserID{}, SigningKey{}, err
	}
	return u, SigningKey{priv: priv}, nil
}

// SigningKeyFromSeed reconstructs a key from its seed.
func SigningKeyFromSeed(seed []byte) (SigningKey, error) {
	if len(seed) != SeedSize {
		return SigningKey{}, fmt.Errorf("%w: seed must be %d bytes, got %d", common.ErrInvalidFormat, SeedSize, len(seed))
	}
	return SigningKey{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed returns the key's seed for persistence.
func (k SigningKey) Seed() []byte {
	return k.priv.Seed()
}

// UserID returns the public identity for this key.
func (k SigningKey) UserID() UserID {
	u, _ := NewUserID(k.priv.Public().(ed25519.PublicKey))
	return u
}

// Sign signs msg.
func (k SigningKey) Sign(msg []byte) Signature {
	s, _ := NewSignature(ed25519.Sign(k.priv, msg))
	return s
}
