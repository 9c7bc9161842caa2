package testutil

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, p, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return p
}

func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := 0; i < n; i++ {
		keys[i] = GenerateSolanaKeypair(t).Public().(ed25519.PublicKey)
	}
	return keys
}

// MustDecodeKey decodes a base58 encoded 32 byte key.
func MustDecodeKey(t *testing.T, s string) ed25519.PublicKey {
	b, err := base58.Decode(s)
	require.NoError(t, err)
	require.Len(t, b, ed25519.PublicKeySize)
	return b
}
