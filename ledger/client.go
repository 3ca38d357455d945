package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

// DefaultTimeout bounds every ledger call including confirmation.
const DefaultTimeout = 60 * time.Second

// transferGas is the intrinsic gas of a plain value transfer.
const transferGas = 21000

// Backend is the RPC surface the client needs. *ethclient.Client and the
// simulated backend's client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// OnchainLedgerClient implements interfaces.Ledger against a DocumentRegistry contract.
type OnchainLedgerClient struct {
	contract *bind.BoundContract
	backend  Backend
	address  common.Address
	timeout  time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	chainID *big.Int

	// fundMu serializes nonce selection and submission for the shared funder wallet.
	fundMu sync.Mutex
}

// NewOnchainLedgerClient creates a client for the contract at address.
// A zero timeout selects DefaultTimeout.
func NewOnchainLedgerClient(backend Backend, address common.Address, timeout time.Duration, log *slog.Logger) (*OnchainLedgerClient, error) {
	parsed, err := abi.JSON(strings.NewReader(DocumentRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OnchainLedgerClient{
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend:  backend,
		address:  address,
		timeout:  timeout,
		log:      log,
	}, nil
}

// Register stores hash on the ledger and waits for inclusion.
func (c *OnchainLedgerClient) Register(ctx context.Context, hash interfaces.ContentHash, blobRef string, escrowedKey string, signer interfaces.Signer) (*interfaces.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if escrowedKey == "" {
		escrowedKey = interfaces.NoEscrowKey
	}

	opts, err := c.transactOpts(ctx, signer)
	if err != nil {
		return nil, err
	}

	tx, err := c.contract.Transact(opts, methodStore, [32]byte(hash), blobRef, escrowedKey)
	if err != nil {
		return nil, classifyError("register", err)
	}

	c.log.Debug("Submitted document registration",
		slog.String("hash", hash.Short()),
		slog.String("tx", tx.Hash().Hex()),
		slog.String("submitter", signer.Address().Hex()))

	receipt, err := c.waitMined(ctx, "register", tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, c.explainFailure(ctx, "register", hash, signer.Address())
	}

	return toReceipt(receipt), nil
}

// Lookup reads the ledger record for hash.
func (c *OnchainLedgerClient) Lookup(ctx context.Context, hash interfaces.ContentHash) (*interfaces.LedgerRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodVerify, [32]byte(hash)); err != nil {
		return nil, classifyError("lookup", err)
	}
	if len(out) != 6 {
		return nil, fmt.Errorf("ledger lookup: unexpected result arity %d", len(out))
	}

	exists := *abi.ConvertType(out[0], new(bool)).(*bool)
	if !exists {
		return &interfaces.LedgerRecord{Exists: false}, nil
	}

	timestamp := *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)

	return &interfaces.LedgerRecord{
		Exists:      true,
		Submitter:   *abi.ConvertType(out[1], new(common.Address)).(*common.Address),
		Timestamp:   time.Unix(timestamp.Int64(), 0).UTC(),
		BlobRef:     *abi.ConvertType(out[3], new(string)).(*string),
		EscrowedKey: *abi.ConvertType(out[4], new(string)).(*string),
		Revoked:     *abi.ConvertType(out[5], new(bool)).(*bool),
	}, nil
}

// Revoke marks hash revoked. The contract only accepts the original submitter.
func (c *OnchainLedgerClient) Revoke(ctx context.Context, hash interfaces.ContentHash, signer interfaces.Signer) (*interfaces.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts, err := c.transactOpts(ctx, signer)
	if err != nil {
		return nil, err
	}

	tx, err := c.contract.Transact(opts, methodRevoke, [32]byte(hash))
	if err != nil {
		return nil, classifyError("revoke", err)
	}

	receipt, err := c.waitMined(ctx, "revoke", tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, c.explainFailure(ctx, "revoke", hash, signer.Address())
	}

	return toReceipt(receipt), nil
}

// Balance returns the latest balance of address in wei.
func (c *OnchainLedgerClient) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	balance, err := c.backend.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, classifyError("balance", err)
	}
	return balance, nil
}

// Fund transfers amount wei from funder to address and waits for inclusion.
func (c *OnchainLedgerClient) Fund(ctx context.Context, address common.Address, amount *big.Int, funder interfaces.Signer) (*interfaces.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts, err := c.transactOpts(ctx, funder)
	if err != nil {
		return nil, err
	}

	signed, err := c.sendTransfer(ctx, address, amount, funder, opts)
	if err != nil {
		return nil, err
	}

	receipt, err := c.waitMined(ctx, "fund", signed)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: funding %s", ErrTxFailed, address.Hex())
	}

	return toReceipt(receipt), nil
}

// sendTransfer picks the funder nonce and submits the transfer under fundMu.
// Confirmation happens outside the lock.
func (c *OnchainLedgerClient) sendTransfer(ctx context.Context, address common.Address, amount *big.Int, funder interfaces.Signer, opts *bind.TransactOpts) (*types.Transaction, error) {
	c.fundMu.Lock()
	defer c.fundMu.Unlock()

	nonce, err := c.backend.PendingNonceAt(ctx, funder.Address())
	if err != nil {
		return nil, classifyError("fund", err)
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, classifyError("fund", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &address,
		Value:    amount,
		Gas:      transferGas,
		GasPrice: gasPrice,
	})

	signed, err := opts.Signer(funder.Address(), tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign funding transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, classifyError("fund", err)
	}
	return signed, nil
}

// Address returns the registry contract address.
func (c *OnchainLedgerClient) Address() common.Address {
	return c.address
}

func (c *OnchainLedgerClient) transactOpts(ctx context.Context, signer interfaces.Signer) (*bind.TransactOpts, error) {
	if signer == nil {
		return nil, ErrNoTransactOpts
	}

	chainID, err := c.getChainID(ctx)
	if err != nil {
		return nil, err
	}

	return signer.TransactOpts(ctx, chainID)
}

func (c *OnchainLedgerClient) getChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chainID != nil {
		return c.chainID, nil
	}

	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, classifyError("chain id", err)
	}
	c.chainID = chainID
	return chainID, nil
}

func (c *OnchainLedgerClient) waitMined(ctx context.Context, op string, tx *types.Transaction) (*types.Receipt, error) {
	start := time.Now()
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		c.log.Warn("Ledger confirmation failed",
			slog.String("op", op),
			slog.String("tx", tx.Hash().Hex()),
			slog.Duration("duration", time.Since(start)),
			"err", err)
		return nil, classifyError(op, err)
	}

	c.log.Debug("Ledger transaction mined",
		slog.String("op", op),
		slog.String("tx", tx.Hash().Hex()),
		slog.Uint64("block", receipt.BlockNumber.Uint64()),
		slog.Duration("duration", time.Since(start)))
	return receipt, nil
}

// explainFailure recovers the cause of a reverted transaction from ledger state,
// since receipts do not carry revert reasons.
func (c *OnchainLedgerClient) explainFailure(ctx context.Context, op string, hash interfaces.ContentHash, from common.Address) error {
	record, err := c.Lookup(ctx, hash)
	if err != nil {
		return fmt.Errorf("%w: %s reverted and state lookup failed: %v", ErrTxFailed, op, err)
	}

	switch {
	case op == "register" && record.Exists:
		return fmt.Errorf("%w: %s", interfaces.ErrDuplicate, hash)
	case op == "revoke" && !record.Exists:
		return fmt.Errorf("%w: %s", interfaces.ErrNotRegistered, hash)
	case op == "revoke" && record.Submitter != from:
		return fmt.Errorf("%w: %s is not the submitter of %s", interfaces.ErrUnauthorized, from.Hex(), hash)
	case op == "revoke" && record.Revoked:
		return fmt.Errorf("%w: %s", interfaces.ErrAlreadyRevoked, hash)
	default:
		return fmt.Errorf("%w: %s %s", ErrTxFailed, op, hash)
	}
}

func toReceipt(receipt *types.Receipt) *interfaces.TxReceipt {
	return &interfaces.TxReceipt{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}
}
