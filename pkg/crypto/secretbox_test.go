package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestSecretBoxRoundtrip(t *testing.T) {
	box, err := NewSecretBox(testKey())
	require.NoError(t, err)

	sealed, err := box.Seal("z00m-passc0de")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "passc0de")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "z00m-passc0de", plain)
}

func TestSecretBoxEmptySecretStaysAbsent(t *testing.T) {
	box, err := NewSecretBox(testKey())
	require.NoError(t, err)

	sealed, err := box.Seal("")
	require.NoError(t, err)
	assert.Nil(t, sealed)

	plain, err := box.Open(nil)
	require.NoError(t, err)
	assert.Equal(t, "", plain)
}

func TestSecretBoxRejectsTamperedCiphertext(t *testing.T) {
	box, err := NewSecretBox(testKey())
	require.NoError(t, err)

	sealed, err := box.Seal("secret")
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = box.Open(sealed)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = box.Open(bytes.Repeat([]byte{1}, 4))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestSecretBoxRejectsBadKeySize(t *testing.T) {
	_, err := NewSecretBox([]byte("short"))
	assert.Error(t, err)
}
