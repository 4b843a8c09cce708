package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/sigfeed/internal/common"
)

func TestDeriveKey(t *testing.T) {
	salt := common.GenerateRandByteArray(SaltSize)

	a := DeriveKey([]byte("correct horse"), salt)
	b := DeriveKey([]byte("correct horse"), salt)
	c := DeriveKey([]byte("battery staple"), salt)

	assert.Len(t, a, KeySize)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	otherSalt := common.GenerateRandByteArray(SaltSize)
	assert.NotEqual(t, a, DeriveKey([]byte("correct horse"), otherSalt))
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := common.GenerateRandByteArray(KeySize)
	plaintext := []byte("thirty-two bytes of seed material")

	ciphertext, nonce, err := Seal(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	got, err := Open(ciphertext, nonce, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpenRejectsTampering(t *testing.T) {
	key := common.GenerateRandByteArray(KeySize)

	ciphertext, nonce, err := Seal([]byte("secret"), key)
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		_, err := Open(ciphertext, nonce, common.GenerateRandByteArray(KeySize))
		assert.Error(t, err)
	})

	t.Run("wrong nonce", func(t *testing.T) {
		_, err := Open(ciphertext, common.GenerateRandByteArray(len(nonce)), key)
		assert.Error(t, err)
	})

	t.Run("flipped bit", func(t *testing.T) {
		tampered := append([]byte(nil), ciphertext...)
		tampered[0] ^= 0x01
		_, err := Open(tampered, nonce, key)
		assert.Error(t, err)
	})
}

func TestSealRejectsBadKeyLength(t *testing.T) {
	_, _, err := Seal([]byte("x"), []byte("short"))
	assert.Error(t, err)
}
