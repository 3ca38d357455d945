package app

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dshubhambadola/CivicSeal/kms"
	"github.com/Dshubhambadola/CivicSeal/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSecretHex() string {
	return hex.EncodeToString(bytes.Repeat([]byte{0x24}, 32))
}

func TestNew_MemoryStack(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Ledger:     LedgerConfig{Kind: LedgerMemory},
		IndexDSN:   "sqlite::memory:",
		BlobStores: []string{"badger://memory", "file://" + t.TempDir()},
		Secret:     SecretConfig{Source: SecretStatic, ServiceSecret: testSecretHex()},
	}

	a, err := New(ctx, cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	identity, err := a.Auth.Register(ctx, "erin@example.com", "pw", "Erin")
	require.NoError(t, err)

	res, err := a.Registry.RegisterDocument(ctx, identity, registry.RegisterRequest{Content: []byte("wired")})
	require.NoError(t, err)
	assert.False(t, res.AlreadyRegistered)

	verification, err := a.Registry.Verify(ctx, res.Record.ContentHash)
	require.NoError(t, err)
	assert.True(t, verification.Registered)

	data, err := a.Blobs.Get(ctx, res.Record.BlobRef)
	require.NoError(t, err)
	assert.Equal(t, []byte("wired"), data)
}

func TestNew_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, &Config{
		Ledger:     LedgerConfig{Kind: LedgerMemory},
		IndexDSN:   "sqlite::memory:",
		BlobStores: []string{"badger://memory"},
	}, testLogger())
	require.Error(t, err)

	_, err = New(ctx, &Config{
		Ledger:     LedgerConfig{Kind: "paper"},
		IndexDSN:   "sqlite::memory:",
		BlobStores: []string{"badger://memory"},
		Secret:     SecretConfig{ServiceSecret: testSecretHex()},
	}, testLogger())
	require.ErrorContains(t, err, "unknown ledger kind")

	_, err = New(ctx, &Config{
		Ledger:     LedgerConfig{Kind: LedgerOnchain, ContractAddress: "nope"},
		IndexDSN:   "sqlite::memory:",
		BlobStores: []string{"badger://memory"},
		Secret:     SecretConfig{ServiceSecret: testSecretHex()},
	}, testLogger())
	require.ErrorContains(t, err, "invalid contract address")

	_, err = New(ctx, &Config{
		Ledger:     LedgerConfig{Kind: LedgerMemory},
		IndexDSN:   "mysql://localhost",
		BlobStores: []string{"badger://memory"},
		Secret:     SecretConfig{ServiceSecret: testSecretHex()},
	}, testLogger())
	require.Error(t, err)
}

func TestNewSecretSource_Shamir(t *testing.T) {
	ctx := context.Background()
	secret := bytes.Repeat([]byte{0x61}, 32)

	shares, err := kms.SplitSecret(secret, 5, 3)
	require.NoError(t, err)

	encoded := make([]string, 0, 3)
	for _, share := range shares[1:4] {
		encoded = append(encoded, hex.EncodeToString(share))
	}

	source, err := NewSecretSource(SecretConfig{Source: SecretShamir, Threshold: 3, Shares: encoded}, testLogger())
	require.NoError(t, err)
	got, err := source.ServiceSecret(ctx)
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	_, err = NewSecretSource(SecretConfig{Source: SecretShamir, Threshold: 3, Shares: encoded[:2]}, testLogger())
	require.ErrorIs(t, err, kms.ErrSecretLocked)

	_, err = NewSecretSource(SecretConfig{Source: SecretShamir, Threshold: 3, Shares: []string{"zz"}}, testLogger())
	require.Error(t, err)
}

func TestNewSecretSource_Validation(t *testing.T) {
	_, err := NewSecretSource(SecretConfig{Source: SecretStatic}, testLogger())
	require.Error(t, err)

	_, err = NewSecretSource(SecretConfig{Source: SecretStatic, ServiceSecret: "abcd"}, testLogger())
	require.ErrorIs(t, err, kms.ErrSecretTooShort)

	_, err = NewSecretSource(SecretConfig{Source: SecretVault}, testLogger())
	require.Error(t, err)

	_, err = NewSecretSource(SecretConfig{Source: "hsm"}, testLogger())
	require.ErrorContains(t, err, "unknown secret source")
}
