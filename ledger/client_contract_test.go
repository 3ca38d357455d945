package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
	"github.com/Dshubhambadola/CivicSeal/kms"
)

var stubContract = common.HexToAddress("0x00000000000000000000000000000000000000dd")

// contractStub stands in for a deployed registry. verifyHash answers from
// record, gas estimation fails with estimateErr, and every sent transaction
// is mined immediately with status.
type contractStub struct {
	Backend
	registry    abi.ABI
	record      *interfaces.LedgerRecord
	callErr     error
	estimateErr error
	status      uint64

	mu   sync.Mutex
	sent []*types.Transaction
}

func newContractStub(t *testing.T, backend Backend) *contractStub {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(DocumentRegistryABI))
	require.NoError(t, err)
	return &contractStub{Backend: backend, registry: parsed, status: types.ReceiptStatusSuccessful}
}

func (s *contractStub) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (s *contractStub) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (s *contractStub) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if s.callErr != nil {
		return nil, s.callErr
	}
	record := s.record
	if record == nil {
		record = &interfaces.LedgerRecord{}
	}
	timestamp := big.NewInt(0)
	if !record.Timestamp.IsZero() {
		timestamp = big.NewInt(record.Timestamp.Unix())
	}
	return s.registry.Methods[methodVerify].Outputs.Pack(
		record.Exists, record.Submitter, timestamp, record.BlobRef, record.EscrowedKey, record.Revoked)
}

func (s *contractStub) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if s.estimateErr != nil {
		return 0, s.estimateErr
	}
	return 200000, nil
}

func (s *contractStub) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, tx)
	return nil
}

func (s *contractStub) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{
		Status:      s.status,
		TxHash:      txHash,
		BlockNumber: big.NewInt(7),
		GasUsed:     42000,
	}, nil
}

func (s *contractStub) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newStubbedClient(t *testing.T) (*OnchainLedgerClient, *contractStub) {
	t.Helper()
	backend, _, err := SetupTestChain()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	stub := newContractStub(t, backend.Client())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := NewOnchainLedgerClient(stub, stubContract, 5*time.Second, log)
	require.NoError(t, err)
	return client, stub
}

func TestOnchainLedgerClient_Register(t *testing.T) {
	client, stub := newStubbedClient(t)
	signer := newTestSigner(t)
	hash := interfaces.Identify([]byte("deed of sale"))

	receipt, err := client.Register(context.Background(), hash, "bafy-cid", "", signer)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), receipt.BlockNumber)
	assert.Equal(t, uint64(42000), receipt.GasUsed)

	require.Equal(t, 1, stub.sentCount())
	tx := stub.sent[0]
	require.NotNil(t, tx.To())
	assert.Equal(t, stubContract, *tx.To())
	assert.Equal(t, receipt.TxHash, tx.Hash())

	method := stub.registry.Methods[methodStore]
	assert.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, [32]byte(hash), args[0])
	assert.Equal(t, "bafy-cid", args[1])
	assert.Equal(t, interfaces.NoEscrowKey, args[2])
}

func TestOnchainLedgerClient_RegisterRejected(t *testing.T) {
	hash := interfaces.Identify([]byte("contested"))

	t.Run("revert during estimation", func(t *testing.T) {
		client, stub := newStubbedClient(t)
		stub.estimateErr = errors.New("execution reverted: Document already registered")

		_, err := client.Register(context.Background(), hash, "cid", "", newTestSigner(t))
		assert.ErrorIs(t, err, interfaces.ErrDuplicate)
		assert.Equal(t, 0, stub.sentCount())
	})

	t.Run("failed receipt for an existing record", func(t *testing.T) {
		client, stub := newStubbedClient(t)
		stub.status = types.ReceiptStatusFailed
		stub.record = &interfaces.LedgerRecord{Exists: true, Submitter: newTestSigner(t).Address()}

		_, err := client.Register(context.Background(), hash, "cid", "", newTestSigner(t))
		assert.ErrorIs(t, err, interfaces.ErrDuplicate)
		assert.Equal(t, 1, stub.sentCount())
	})

	t.Run("failed receipt without a record", func(t *testing.T) {
		client, stub := newStubbedClient(t)
		stub.status = types.ReceiptStatusFailed

		_, err := client.Register(context.Background(), hash, "cid", "", newTestSigner(t))
		assert.ErrorIs(t, err, ErrTxFailed)
	})
}

func TestOnchainLedgerClient_Lookup(t *testing.T) {
	client, stub := newStubbedClient(t)
	submitter := newTestSigner(t).Address()
	hash := interfaces.Identify([]byte("minutes"))

	record, err := client.Lookup(context.Background(), hash)
	require.NoError(t, err)
	assert.False(t, record.Exists)

	stub.record = &interfaces.LedgerRecord{
		Exists:      true,
		Submitter:   submitter,
		Timestamp:   time.Unix(1700000000, 0),
		BlobRef:     "cid",
		EscrowedKey: interfaces.NoEscrowKey,
		Revoked:     true,
	}
	record, err = client.Lookup(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, &interfaces.LedgerRecord{
		Exists:      true,
		Submitter:   submitter,
		Timestamp:   time.Unix(1700000000, 0).UTC(),
		BlobRef:     "cid",
		EscrowedKey: interfaces.NoEscrowKey,
		Revoked:     true,
	}, record)

	stub.callErr = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
	_, err = client.Lookup(context.Background(), hash)
	assert.ErrorIs(t, err, interfaces.ErrLedgerUnavailable)
}

func TestOnchainLedgerClient_RevokeFailures(t *testing.T) {
	owner := newTestSigner(t)
	other := newTestSigner(t)
	hash := interfaces.Identify([]byte("revocable"))

	testCases := []struct {
		name   string
		record *interfaces.LedgerRecord
		signer *kms.KeySigner
		want   error
	}{
		{
			name:   "unknown document",
			record: nil,
			signer: owner,
			want:   interfaces.ErrNotRegistered,
		},
		{
			name:   "not the submitter",
			record: &interfaces.LedgerRecord{Exists: true, Submitter: owner.Address()},
			signer: other,
			want:   interfaces.ErrUnauthorized,
		},
		{
			name:   "not the submitter of a revoked document",
			record: &interfaces.LedgerRecord{Exists: true, Submitter: owner.Address(), Revoked: true},
			signer: other,
			want:   interfaces.ErrUnauthorized,
		},
		{
			name:   "already revoked",
			record: &interfaces.LedgerRecord{Exists: true, Submitter: owner.Address(), Revoked: true},
			signer: owner,
			want:   interfaces.ErrAlreadyRevoked,
		},
		{
			name:   "unexplained revert",
			record: &interfaces.LedgerRecord{Exists: true, Submitter: owner.Address()},
			signer: owner,
			want:   ErrTxFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, stub := newStubbedClient(t)
			stub.status = types.ReceiptStatusFailed
			stub.record = tc.record

			_, err := client.Revoke(context.Background(), hash, tc.signer)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOnchainLedgerClient_Revoke(t *testing.T) {
	client, stub := newStubbedClient(t)
	hash := interfaces.Identify([]byte("revoked ok"))

	_, err := client.Revoke(context.Background(), hash, newTestSigner(t))
	require.NoError(t, err)
	require.Equal(t, 1, stub.sentCount())
	assert.Equal(t, stub.registry.Methods[methodRevoke].ID, stub.sent[0].Data()[:4])

	stub.estimateErr = errors.New("execution reverted: Only the submitter can revoke")
	_, err = client.Revoke(context.Background(), hash, newTestSigner(t))
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
}

// The memory ledger and the contract client must classify the same failures alike.
func TestRevokeClassificationMatchesMemoryLedger(t *testing.T) {
	ctx := context.Background()
	owner := newTestSigner(t)
	other := newTestSigner(t)
	hash := interfaces.Identify([]byte("parity"))

	memory := NewMemoryLedger()
	_, err := memory.Register(ctx, hash, "cid", "", owner)
	require.NoError(t, err)
	_, err = memory.Revoke(ctx, hash, owner)
	require.NoError(t, err)
	_, memoryErr := memory.Revoke(ctx, hash, other)

	client, stub := newStubbedClient(t)
	stub.status = types.ReceiptStatusFailed
	stub.record = &interfaces.LedgerRecord{Exists: true, Submitter: owner.Address(), Revoked: true}
	_, chainErr := client.Revoke(ctx, hash, other)

	assert.ErrorIs(t, memoryErr, interfaces.ErrUnauthorized)
	assert.ErrorIs(t, chainErr, interfaces.ErrUnauthorized)
}

func TestOnchainLedgerClient_ConcurrentFunding(t *testing.T) {
	backend, funderKey, err := SetupTestChain()
	require.NoError(t, err)
	defer backend.Close()

	client := newTestClient(t, backend, stubContract)
	funder := kms.NewKeySigner(funderKey)
	recipients := []common.Address{newTestSigner(t).Address(), newTestSigner(t).Address(), newTestSigner(t).Address()}

	errs := make([]error, len(recipients))
	commitWhile(t, backend, func() {
		var wg sync.WaitGroup
		for i, recipient := range recipients {
			wg.Add(1)
			go func(i int, recipient common.Address) {
				defer wg.Done()
				_, errs[i] = client.Fund(context.Background(), recipient, interfaces.Wei(5), funder)
			}(i, recipient)
		}
		wg.Wait()
	})

	for i, recipient := range recipients {
		require.NoError(t, errs[i])
		balance, err := client.Balance(context.Background(), recipient)
		require.NoError(t, err)
		assert.Equal(t, 0, balance.Cmp(interfaces.Wei(5)))
	}
}
