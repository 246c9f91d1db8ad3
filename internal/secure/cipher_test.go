package secure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldCipherRoundTrip(t *testing.T) {
	c, err := NewFieldCipher("test-passphrase")
	require.NoError(t, err)

	enc, err := c.Encrypt("123456789012")
	require.NoError(t, err)
	assert.NotContains(t, enc, "123456789012")

	// nonce differs per call
	enc2, err := c.Encrypt("123456789012")
	require.NoError(t, err)
	assert.NotEqual(t, enc, enc2)

	plain, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", plain)
}

func TestFieldCipherWrongKey(t *testing.T) {
	a, err := NewFieldCipher("key-a")
	require.NoError(t, err)
	b, err := NewFieldCipher("key-b")
	require.NoError(t, err)

	enc, err := a.Encrypt("secret")
	require.NoError(t, err)

	_, err = b.Decrypt(enc)
	assert.True(t, errors.Is(err, ErrCiphertext))

	_, err = a.Decrypt("not base64!")
	assert.True(t, errors.Is(err, ErrCiphertext))
}

func TestNewFieldCipherRequiresKey(t *testing.T) {
	_, err := NewFieldCipher("")
	assert.Error(t, err)
}
