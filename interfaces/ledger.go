package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Signer authorizes ledger writes on behalf of one address.
type Signer interface {
	Address() common.Address
	TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}

// Ledger is the authoritative registration service. Writes block until the
// ledger confirms inclusion.
type Ledger interface {
	// Register fails with ErrDuplicate if the ledger already holds hash.
	Register(ctx context.Context, hash ContentHash, blobRef string, escrowedKey string, signer Signer) (*TxReceipt, error)
	// Lookup is read-only. A missing hash yields a record with Exists false.
	Lookup(ctx context.Context, hash ContentHash) (*LedgerRecord, error)
	// Revoke fails with ErrUnauthorized if signer is not the original submitter.
	Revoke(ctx context.Context, hash ContentHash, signer Signer) (*TxReceipt, error)
	Balance(ctx context.Context, address common.Address) (*big.Int, error)
	Fund(ctx context.Context, address common.Address, amount *big.Int, funder Signer) (*TxReceipt, error)
}

// FundingSource tops up custodial wallets.
type FundingSource interface {
	Fund(ctx context.Context, address common.Address, amount *big.Int) error
}

// SecretSource provides the service-wide secret.
type SecretSource interface {
	ServiceSecret(ctx context.Context) ([]byte, error)
}
