package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

// MockLedger mocks the interfaces.Ledger interface
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Register(ctx context.Context, hash interfaces.ContentHash, blobRef string, escrowedKey string, signer interfaces.Signer) (*interfaces.TxReceipt, error) {
	args := m.Called(ctx, hash, blobRef, escrowedKey, signer)
	receipt, _ := args.Get(0).(*interfaces.TxReceipt)
	return receipt, args.Error(1)
}

func (m *MockLedger) Lookup(ctx context.Context, hash interfaces.ContentHash) (*interfaces.LedgerRecord, error) {
	args := m.Called(ctx, hash)
	record, _ := args.Get(0).(*interfaces.LedgerRecord)
	return record, args.Error(1)
}

func (m *MockLedger) Revoke(ctx context.Context, hash interfaces.ContentHash, signer interfaces.Signer) (*interfaces.TxReceipt, error) {
	args := m.Called(ctx, hash, signer)
	receipt, _ := args.Get(0).(*interfaces.TxReceipt)
	return receipt, args.Error(1)
}

func (m *MockLedger) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	args := m.Called(ctx, address)
	balance, _ := args.Get(0).(*big.Int)
	return balance, args.Error(1)
}

func (m *MockLedger) Fund(ctx context.Context, address common.Address, amount *big.Int, funder interfaces.Signer) (*interfaces.TxReceipt, error) {
	args := m.Called(ctx, address, amount, funder)
	receipt, _ := args.Get(0).(*interfaces.TxReceipt)
	return receipt, args.Error(1)
}

var (
	_ interfaces.Ledger = (*MockLedger)(nil)
	_ interfaces.Ledger = (*MemoryLedger)(nil)
	_ interfaces.Ledger = (*OnchainLedgerClient)(nil)
)
