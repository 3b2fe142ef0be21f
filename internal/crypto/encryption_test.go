package crypto

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	em, err := NewEncryptionManagerWithKey(DeriveKeyFromPassword("hunter2"), nil)
	require.NoError(t, err)

	sealed, err := em.Encrypt("abc123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "abc123")

	again, err := em.Encrypt("abc123")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ between calls")

	plain, err := em.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "abc123", plain)
}

func TestEmptyValues(t *testing.T) {
	em, err := NewEncryptionManagerWithKey(DeriveKeyFromPassword("k"), nil)
	require.NoError(t, err)

	out, err := em.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = em.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestInvalidKeySize(t *testing.T) {
	_, err := NewEncryptionManagerWithKey([]byte("short"), nil)
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDecryptFailures(t *testing.T) {
	em, err := NewEncryptionManagerWithKey(DeriveKeyFromPassword("one"), nil)
	require.NoError(t, err)
	other, err := NewEncryptionManagerWithKey(DeriveKeyFromPassword("two"), nil)
	require.NoError(t, err)

	sealed, err := em.Encrypt("abc123")
	require.NoError(t, err)

	_, err = other.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = em.Decrypt(base64.StdEncoding.EncodeToString([]byte("tiny")))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = em.Decrypt("not base64!")
	assert.Error(t, err)
}

func TestNewEncryptionManagerKeySources(t *testing.T) {
	raw := make([]byte, KeySize)
	for i := range raw {
		raw[i] = byte(i)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	fromBase64, err := NewEncryptionManager(encoded, "", nil)
	require.NoError(t, err)
	direct, err := NewEncryptionManagerWithKey(raw, nil)
	require.NoError(t, err)

	sealed, err := fromBase64.Encrypt("token")
	require.NoError(t, err)
	plain, err := direct.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "token", plain)

	fromPassphrase, err := NewEncryptionManager("correct horse", "", nil)
	require.NoError(t, err)
	_, err = fromPassphrase.Encrypt("token")
	require.NoError(t, err)

	_, err = NewEncryptionManager("", "", nil)
	assert.Error(t, err)
}

func TestKeyFileCreatedOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "token.key")

	first, err := NewEncryptionManager("", path, nil)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	sealed, err := first.Encrypt("abc123")
	require.NoError(t, err)

	second, err := NewEncryptionManager("", path, nil)
	require.NoError(t, err)
	plain, err := second.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "abc123", plain)
}

func TestCorruptKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.key")
	require.NoError(t, os.WriteFile(path, []byte(base64.StdEncoding.EncodeToString([]byte("short"))), 0o600))

	_, err := NewEncryptionManager("", path, nil)
	assert.Error(t, err)
}
