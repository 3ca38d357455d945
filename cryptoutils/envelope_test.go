package cryptoutils

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	key, err := DeriveKey([]byte("0123456789abcdef0123456789abcdef"), "test")
	require.NoError(t, err)
	require.Len(t, key, KeySize)

	testCases := []struct {
		name string
		data []byte
	}{
		{name: "Simple string", data: []byte("This is a secret message")},
		{name: "Binary data", data: []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD}},
		{name: "Empty data", data: []byte{}},
		{name: "Long data", data: make([]byte, 4096)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sealed, err := Seal(key, tc.data)
			require.NoError(t, err)
			assert.Equal(t, SealVersion, sealed[0])

			opened, err := Open(key, sealed)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tc.data, opened))
		})
	}
}

func TestSeal_FreshNonce(t *testing.T) {
	key, err := RandomBytes(KeySize)
	require.NoError(t, err)

	a, err := Seal(key, []byte("same"))
	require.NoError(t, err)
	b, err := Seal(key, []byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpen_Failures(t *testing.T) {
	key, err := DeriveKey([]byte("secret-one-secret-one-secret-one"), "purpose")
	require.NoError(t, err)
	other, err := DeriveKey([]byte("secret-one-secret-one-secret-one"), "other-purpose")
	require.NoError(t, err)

	sealed, err := Seal(key, []byte("payload"))
	require.NoError(t, err)

	_, err = Open(other, sealed)
	assert.Error(t, err, "different info must yield a different key")

	tampered := append([]byte{}, sealed...)
	tampered[len(tampered)-1] ^= 0xff
	_, err = Open(key, tampered)
	assert.Error(t, err)

	_, err = Open(key, sealed[:5])
	assert.True(t, errors.Is(err, ErrCiphertextTooShort))

	wrongVersion := append([]byte{}, sealed...)
	wrongVersion[0] = 0x7f
	_, err = Open(key, wrongVersion)
	assert.True(t, errors.Is(err, ErrUnknownSealVersion))
}

func TestDeriveKey_Deterministic(t *testing.T) {
	secret := []byte("service-secret-service-secret-00")
	a, err := DeriveKey(secret, "share:0xabc")
	require.NoError(t, err)
	b, err := DeriveKey(secret, "share:0xabc")
	require.NoError(t, err)
	c, err := DeriveKey(secret, "share:0xabd")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = DeriveKey(nil, "x")
	assert.Error(t, err)
}
