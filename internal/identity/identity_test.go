package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/sigfeed/internal/common"
)

func TestUserIDTextRoundTrip(t *testing.T) {
	u, _, err := GenerateKeyPair()
	require.NoError(t, err)

	text := u.String()
	decoded, err := DecodeUserID(text)
	require.NoError(t, err)
	assert.True(t, u.Equal(decoded))
	assert.Equal(t, u.Bytes(), decoded.Bytes())
}

func TestSignatureTextRoundTrip(t *testing.T) {
	_, key, err := GenerateKeyPair()
	require.NoError(t, err)

	sig := key.Sign([]byte("payload"))
	decoded, err := DecodeSignature(sig.String())
	require.NoError(t, err)
	assert.True(t, sig.Equal(decoded))
}

func TestDecodeUserIDErrors(t *testing.T) {
	u, _, err := GenerateKeyPair()
	require.NoError(t, err)
	good := u.String()

	// Flip a character somewhere in the middle so the checksum no longer
	// matches. Pick a replacement that stays inside the base58 alphabet.
	replacement := byte('2')
	if good[len(good)/2] == replacement {
		replacement = '3'
	}
	corrupted := good[:len(good)/2] + string(replacement) + good[len(good)/2+1:]

	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not base58", "0OIl not base58", common.ErrInvalidFormat},
		{"too short", "abc", common.ErrInvalidFormat},
		{"corrupted checksum", corrupted, common.ErrChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeUserID(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeSignatureWrongLength(t *testing.T) {
	// A valid user ID text is far too short to be a signature.
	u, _, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = DecodeSignature(u.String())
	assert.ErrorIs(t, err, common.ErrInvalidFormat)
}

func TestVerify(t *testing.T) {
	u, key, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("an item's canonical bytes")
	sig := key.Sign(msg)

	assert.True(t, u.Verify(sig, msg))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	u, key, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte(strings.Repeat("x", 64))
	sig := key.Sign(msg)

	// Single-bit tamper.
	tampered := append([]byte(nil), msg...)
	tampered[10] ^= 0x01
	assert.False(t, u.Verify(sig, tampered))
}

func TestVerifyRejectsWrongAuthor(t *testing.T) {
	_, key, err := GenerateKeyPair()
	require.NoError(t, err)
	other, _, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("hello")
	assert.False(t, other.Verify(key.Sign(msg), msg))
}

func TestSigningKeyFromSeed(t *testing.T) {
	u, key, err := GenerateKeyPair()
	require.NoError(t, err)

	restored, err := SigningKeyFromSeed(key.Seed())
	require.NoError(t, err)
	assert.True(t, u.Equal(restored.UserID()))

	msg := []byte("same key, same signature")
	assert.True(t, restored.Sign(msg).Equal(key.Sign(msg)))
}

func TestSigningKeyFromSeedRejectsBadLength(t *testing.T) {
	_, err := SigningKeyFromSeed([]byte("short"))
	assert.ErrorIs(t, err, common.ErrInvalidFormat)
}

func TestNewUserIDRejectsBadLength(t *testing.T) {
	_, err := NewUserID(make([]byte, 16))
	assert.ErrorIs(t, err, common.ErrInvalidFormat)
}
