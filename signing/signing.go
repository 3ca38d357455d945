// Package signing turns a stored identity into a ledger-ready signer and keeps
// its custodial wallet topped up.
package signing

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
	"github.com/Dshubhambadola/CivicSeal/kms"
	"github.com/Dshubhambadola/CivicSeal/metrics"
)

const DefaultFundingTimeout = 15 * time.Second

var (
	// DefaultMinBalance is 0.01 ETH.
	DefaultMinBalance = interfaces.Wei(10)
	// DefaultTopUp is 0.1 ETH.
	DefaultTopUp = interfaces.Wei(100)
)

type Config struct {
	MinBalance *big.Int
	TopUp      *big.Int
	Timeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinBalance == nil {
		c.MinBalance = DefaultMinBalance
	}
	if c.TopUp == nil {
		c.TopUp = DefaultTopUp
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultFundingTimeout
	}
	return c
}

// Adapter resolves signers through the key vault and funds them on demand.
type Adapter struct {
	vault   *kms.KeyVault
	ledger  interfaces.Ledger
	funding interfaces.FundingSource
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Recorder
}

func NewAdapter(vault *kms.KeyVault, ledger interfaces.Ledger, funding interfaces.FundingSource, cfg Config, log *slog.Logger, recorder *metrics.Recorder) *Adapter {
	if funding == nil {
		funding = NoopFunding{}
	}
	return &Adapter{
		vault:   vault,
		ledger:  ledger,
		funding: funding,
		cfg:     cfg.withDefaults(),
		log:     log,
		metrics: recorder,
	}
}

func (a *Adapter) Vault() *kms.KeyVault {
	return a.vault
}

// SignerFor unseals the identity's key and makes sure the wallet can pay gas.
// Funding problems never fail the call.
func (a *Adapter) SignerFor(ctx context.Context, identity *interfaces.Identity) (interfaces.Signer, error) {
	signer, err := a.vault.ResolveSigner(ctx, identity)
	if err != nil {
		a.log.Error("Failed to resolve signer", "err", err, slog.String("identity", identity.ID.Hex()))
		return nil, err
	}

	a.EnsureFunded(ctx, signer.Address())
	return signer, nil
}

// EnsureFunded tops up address when its balance is below the minimum. Errors
// are logged and counted.
func (a *Adapter) EnsureFunded(ctx context.Context, address common.Address) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	log := a.log.With(slog.String("address", address.Hex()))

	balance, err := a.ledger.Balance(ctx, address)
	if err != nil {
		log.Warn("Failed to read wallet balance", "err", err)
		a.metrics.LedgerError("balance")
		a.metrics.FundingFailure()
		return
	}

	if balance.Cmp(a.cfg.MinBalance) >= 0 {
		return
	}

	log.Info("Topping up wallet",
		slog.String("balance", balance.String()),
		slog.String("amount", a.cfg.TopUp.String()))

	if err := a.funding.Fund(ctx, address, a.cfg.TopUp); err != nil {
		log.Warn("Failed to fund wallet", "err", err)
		a.metrics.FundingFailure()
	}
}

// LedgerFunding sends top-ups from a service-held funder wallet.
type LedgerFunding struct {
	ledger interfaces.Ledger
	funder interfaces.Signer
}

func NewLedgerFunding(ledger interfaces.Ledger, funder interfaces.Signer) *LedgerFunding {
	return &LedgerFunding{ledger: ledger, funder: funder}
}

func (f *LedgerFunding) Fund(ctx context.Context, address common.Address, amount *big.Int) error {
	_, err := f.ledger.Fund(ctx, address, amount, f.funder)
	return err
}

// NoopFunding is used on ledgers where gas is free or pre-funded.
type NoopFunding struct{}

func (NoopFunding) Fund(ctx context.Context, address common.Address, amount *big.Int) error {
	return nil
}

var (
	_ interfaces.FundingSource = (*LedgerFunding)(nil)
	_ interfaces.FundingSource = NoopFunding{}
)
