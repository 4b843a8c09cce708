// Package identity implements the public-key identities that author signed
// items: a UserID is an ed25519 public key, a Signature is an ed25519
// signature over an item's canonical bytes. Both have a checksummed base58
// text form intended for sharing by hand; transcription errors are caught by
// the checksum before any lookup happens.
package identity

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/dmitrijs2005/sigfeed/internal/common"
)

const (
	// UserIDSize is the byte length of a raw user ID (ed25519 public key).
	UserIDSize = ed25519.PublicKeySize

	// SignatureSize is the byte length of a raw signature.
	SignatureSize = ed25519.SignatureSize

	// checksumSize trailing bytes of sha256(sha256(payload)) appended to
	// the payload before base58 encoding.
	checksumSize = 4
)

// UserID is a content author's identity. The zero value is not a valid ID.
type UserID struct {
	k [UserIDSize]byte
}

// Signature is an ed25519 signature binding item bytes to a UserID.
type Signature struct {
	s [SignatureSize]byte
}

// NewUserID copies b into a UserID. Returns ErrInvalidFormat unless b is
// exactly UserIDSize bytes.
func NewUserID(b []byte) (UserID, error) {
	var u UserID
	if len(b) != UserIDSize {
		return u, fmt.Errorf("%w: user id must be %d bytes, got %d", common.ErrInvalidFormat, UserIDSize, len(b))
	}
	copy(u.k[:], b)
	return u, nil
}

// NewSignature copies b into a Signature. Returns ErrInvalidFormat unless b
// is exactly SignatureSize bytes.
func NewSignature(b []byte) (Signature, error) {
	var s Signature
	if len(b) != SignatureSize {
		return s, fmt.Errorf("%w: signature must be %d bytes, got %d", common.ErrInvalidFormat, SignatureSize, len(b))
	}
	copy(s.s[:], b)
	return s, nil
}

// Bytes returns a copy of the raw key bytes.
func (u UserID) Bytes() []byte {
	b := make([]byte, UserIDSize)
	copy(b, u.k[:])
	return b
}

// Bytes returns a copy of the raw signature bytes.
func (s Signature) Bytes() []byte {
	b := make([]byte, SignatureSize)
	copy(b, s.s[:])
	return b
}

// Equal reports byte-exact equality.
func (u UserID) Equal(o UserID) bool { return u.k == o.k }

// Equal reports byte-exact equality.
func (s Signature) Equal(o Signature) bool { return s.s == o.s }

// String returns the checksummed base58 text form.
func (u UserID) String() string { return encodeChecked(u.k[:]) }

// String returns the checksummed base58 text form.
func (s Signature) String() string { return encodeChecked(s.s[:]) }

// DecodeUserID parses the text form produced by UserID.String. Malformed
// base58 or a wrong-length payload yields ErrInvalidFormat; a well-formed
// payload with a bad checksum yields ErrChecksumMismatch.
func DecodeUserID(text string) (UserID, error) {
	payload, err := decodeChecked(text, UserIDSize)
	if err != nil {
		return UserID{}, err
	}
	return NewUserID(payload)
}

// DecodeSignature parses the text form produced by Signature.String, with
// the same error contract as DecodeUserID.
func DecodeSignature(text string) (Signature, error) {
	payload, err := decodeChecked(text, SignatureSize)
	if err != nil {
		return Signature{}, err
	}
	return NewSignature(payload)
}

// Verify reports whether sig is a valid signature over msg by this user's
// key. Invalid is an expected outcome, so the result is a plain bool.
func (u UserID) Verify(sig Signature, msg []byte) bool {
	return ed25519.Verify(u.k[:], msg, sig.s[:])
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumSize]
}

func encodeChecked(payload []byte) string {
	buf := make([]byte, 0, len(payload)+checksumSize)
	buf = append(buf, payload...)
	buf = append(buf, checksum(payload)...)
	return base58.Encode(buf)
}

func decodeChecked(text string, payloadLen int) ([]byte, error) {
	raw, err := base58.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidFormat, err)
	}
	if len(raw) != payloadLen+checksumSize {
		return nil, fmt.Errorf("%w: expected %d payload bytes, got %d", common.ErrInvalidFormat, payloadLen, len(raw)-checksumSize)
	}
	payload, sum := raw[:payloadLen], raw[payloadLen:]
	if !bytes.Equal(sum, checksum(payload)) {
		return nil, common.ErrChecksumMismatch
	}
	return payload, nil
}
