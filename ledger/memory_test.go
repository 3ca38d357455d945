package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
	"github.com/Dshubhambadola/CivicSeal/kms"
)

func newTestSigner(t *testing.T) *kms.KeySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return kms.NewKeySigner(key)
}

func TestMemoryLedger_RegisterLookup(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	alice := newTestSigner(t)
	bob := newTestSigner(t)
	hash := interfaces.Identify([]byte("hello-doc"))

	record, err := l.Lookup(ctx, hash)
	require.NoError(t, err)
	assert.False(t, record.Exists)

	receipt, err := l.Register(ctx, hash, "QmBlob", "", alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.BlockNumber)

	record, err = l.Lookup(ctx, hash)
	require.NoError(t, err)
	assert.True(t, record.Exists)
	assert.Equal(t, alice.Address(), record.Submitter)
	assert.Equal(t, "QmBlob", record.BlobRef)
	assert.Equal(t, interfaces.NoEscrowKey, record.EscrowedKey)
	assert.False(t, record.Revoked)

	_, err = l.Register(ctx, hash, "QmOther", "", bob)
	assert.True(t, errors.Is(err, interfaces.ErrDuplicate))
	assert.Equal(t, 1, l.Writes(), "a rejected registration writes nothing")
}

func TestMemoryLedger_Revoke(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	alice := newTestSigner(t)
	bob := newTestSigner(t)
	hash := interfaces.Identify([]byte("contract"))

	_, err := l.Revoke(ctx, hash, alice)
	assert.True(t, errors.Is(err, interfaces.ErrNotRegistered))

	_, err = l.Register(ctx, hash, "ref", "", alice)
	require.NoError(t, err)

	_, err = l.Revoke(ctx, hash, bob)
	assert.True(t, errors.Is(err, interfaces.ErrUnauthorized))

	_, err = l.Revoke(ctx, hash, alice)
	require.NoError(t, err)

	_, err = l.Revoke(ctx, hash, alice)
	assert.True(t, errors.Is(err, interfaces.ErrAlreadyRevoked))

	record, err := l.Lookup(ctx, hash)
	require.NoError(t, err)
	assert.True(t, record.Revoked)
	assert.Equal(t, 2, l.Writes())
}

func TestMemoryLedger_OutageAndReset(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	alice := newTestSigner(t)
	hash := interfaces.Identify([]byte("outage"))

	_, err := l.Register(ctx, hash, "ref", "", alice)
	require.NoError(t, err)

	l.SetUnavailable(true)
	_, err = l.Lookup(ctx, hash)
	assert.True(t, errors.Is(err, interfaces.ErrLedgerUnavailable))
	_, err = l.Register(ctx, interfaces.Identify([]byte("x")), "ref", "", alice)
	assert.True(t, errors.Is(err, interfaces.ErrLedgerUnavailable))

	l.SetUnavailable(false)
	l.Reset()
	record, err := l.Lookup(ctx, hash)
	require.NoError(t, err)
	assert.False(t, record.Exists)
}

func TestMemoryLedger_Funding(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	funder := newTestSigner(t)
	user := newTestSigner(t)

	l.SetBalance(funder.Address(), interfaces.Wei(150))

	_, err := l.Fund(ctx, user.Address(), interfaces.Wei(100), funder)
	require.NoError(t, err)

	balance, err := l.Balance(ctx, user.Address())
	require.NoError(t, err)
	assert.Equal(t, 0, balance.Cmp(interfaces.Wei(100)))

	funderBalance, err := l.Balance(ctx, funder.Address())
	require.NoError(t, err)
	assert.Equal(t, 0, funderBalance.Cmp(interfaces.Wei(50)))

	_, err = l.Fund(ctx, user.Address(), interfaces.Wei(100), funder)
	assert.True(t, errors.Is(err, ErrTxFailed))

	zero, err := l.Balance(ctx, newTestSigner(t).Address())
	require.NoError(t, err)
	assert.Equal(t, 0, zero.Cmp(big.NewInt(0)))
}
