package keyring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
)

func TestKeyringRoundTrip(t *testing.T) {
	kr := New(t.TempDir())

	user, key, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	require.NoError(t, kr.Save(key, []byte("passphrase")))

	got, err := kr.Load(user, []byte("passphrase"))
	require.NoError(t, err)
	assert.Equal(t, user, got.UserID())

	// The restored key signs identically.
	msg := []byte("message")
	assert.Equal(t, key.Sign(msg), got.Sign(msg))
}

func TestKeyringWrongPassphrase(t *testing.T) {
	kr := New(t.TempDir())

	user, key, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, kr.Save(key, []byte("right")))

	_, err = kr.Load(user, []byte("wrong"))
	assert.Error(t, err)
}

func TestKeyringMissingKey(t *testing.T) {
	kr := New(t.TempDir())

	user, _, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	_, err = kr.Load(user, []byte("pass"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestKeyringList(t *testing.T) {
	dir := t.TempDir()
	kr := New(dir)

	got, err := kr.List()
	require.NoError(t, err)
	assert.Empty(t, got)

	var want []identity.UserID
	for i := 0; i < 3; i++ {
		user, key, err := identity.GenerateKeyPair()
		require.NoError(t, err)
		require.NoError(t, kr.Save(key, []byte("pass")))
		want = append(want, user)
	}

	// Stray files are skipped.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bogus.key"), []byte("x"), 0o600))

	got, err = kr.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got)
}

func TestKeyringRenamedFileRejected(t *testing.T) {
	dir := t.TempDir()
	kr := New(dir)

	user, key, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, kr.Save(key, []byte("pass")))

	other, _, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	// Pretend the sealed file belongs to another identity.
	require.NoError(t, os.Rename(
		filepath.Join(dir, user.String()+keyFileExt),
		filepath.Join(dir, other.String()+keyFileExt)))

	_, err = kr.Load(other, []byte("pass"))
	assert.ErrorIs(t, err, common.ErrInvalidFormat)
}
