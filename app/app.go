package app

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Dshubhambadola/CivicSeal/api"
	"github.com/Dshubhambadola/CivicSeal/auth"
	"github.com/Dshubhambadola/CivicSeal/common"
	"github.com/Dshubhambadola/CivicSeal/index"
	"github.com/Dshubhambadola/CivicSeal/interfaces"
	"github.com/Dshubhambadola/CivicSeal/kms"
	"github.com/Dshubhambadola/CivicSeal/ledger"
	"github.com/Dshubhambadola/CivicSeal/links"
	"github.com/Dshubhambadola/CivicSeal/metrics"
	"github.com/Dshubhambadola/CivicSeal/reconciler"
	"github.com/Dshubhambadola/CivicSeal/registry"
	"github.com/Dshubhambadola/CivicSeal/sharing"
	"github.com/Dshubhambadola/CivicSeal/signing"
	"github.com/Dshubhambadola/CivicSeal/storage"
)

// App holds the wired services of one process.
type App struct {
	Index    *index.Index
	Ledger   interfaces.Ledger
	Blobs    interfaces.BlobStore
	Vault    *kms.KeyVault
	Signers  *signing.Adapter
	Registry *registry.Registry
	Sharing  *sharing.Engine
	Links    *links.Manager
	Auth     *auth.Service
	Handler  *api.Handler
	Metrics  *metrics.Recorder

	log     *slog.Logger
	closers []io.Closer
}

// New wires every service. On error, anything already opened is closed.
func New(ctx context.Context, cfg *Config, log *slog.Logger) (a *App, err error) {
	a = &App{
		Metrics: metrics.NewRecorder(common.PackageName),
		log:     log,
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	secret, err := NewSecretSource(cfg.Secret, log)
	if err != nil {
		return nil, err
	}
	envelope := kms.NewEnvelope(secret)
	a.Vault = kms.NewKeyVault(envelope)

	a.Index, err = index.Open(ctx, cfg.IndexDSN, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Index)

	a.Blobs, err = storage.NewStorageBackendFactory(log).CreateMultiBackend(cfg.BlobStores)
	if err != nil {
		return nil, err
	}
	if closer, ok := a.Blobs.(io.Closer); ok {
		a.closers = append(a.closers, closer)
	}

	a.Ledger, err = NewLedger(ctx, cfg.Ledger, log)
	if err != nil {
		return nil, err
	}

	funding, err := newFunding(cfg.Ledger, a.Ledger)
	if err != nil {
		return nil, err
	}

	a.Signers = signing.NewAdapter(a.Vault, a.Ledger, funding, signing.Config{
		MinBalance: cfg.Ledger.MinBalance,
		TopUp:      cfg.Ledger.TopUp,
	}, log, a.Metrics)

	documents := a.Index.Documents()
	rec := reconciler.NewLedgerFirst(a.Ledger, documents, log).
		WithObserver(func(source interfaces.VerificationSource) {
			a.Metrics.Verification(string(source))
		})

	a.Registry = registry.New(a.Ledger, documents, a.Blobs, a.Signers, envelope, rec,
		registry.Config{UnpinTimeout: cfg.UnpinTimeout}, log, a.Metrics)
	a.Sharing = sharing.NewEngine(documents, a.Index.Shares(), a.Index.Identities(), envelope, rec, log, a.Metrics)
	a.Links = links.NewManager(a.Index.Links(), documents, rec, log, a.Metrics)
	a.Auth = auth.NewService(a.Index.Identities(), a.Vault, a.Signers, auth.Config{TokenTTL: cfg.TokenTTL}, log)
	a.Handler = api.NewHandler(a.Auth, a.Registry, a.Sharing, a.Links, api.HandlerConfig{
		PublicURL:      cfg.PublicURL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, log)

	return a, nil
}

// Close waits for background work and releases stores.
func (a *App) Close() error {
	if a.Registry != nil {
		a.Registry.Close()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewSecretSource builds the configured service secret source.
func NewSecretSource(cfg SecretConfig, log *slog.Logger) (interfaces.SecretSource, error) {
	switch cfg.Source {
	case SecretStatic, "":
		if cfg.ServiceSecret == "" {
			return nil, errors.New("service-secret is required for the static secret source")
		}
		return kms.NewStaticSecretFromHex(cfg.ServiceSecret)

	case SecretVault:
		if cfg.VaultAddr == "" || cfg.VaultPath == "" {
			return nil, errors.New("vault-addr and vault-path are required for the vault secret source")
		}
		return kms.NewVaultSecret(cfg.VaultAddr, cfg.VaultToken, cfg.VaultMount, cfg.VaultPath, log)

	case SecretShamir:
		source, err := kms.NewShamirSecret(cfg.Threshold)
		if err != nil {
			return nil, err
		}
		for i, share := range cfg.Shares {
			decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(share), "0x"))
			if err != nil {
				return nil, fmt.Errorf("invalid secret share %d: %w", i, err)
			}
			if err := source.SubmitShare(decoded); err != nil {
				return nil, fmt.Errorf("secret share %d rejected: %w", i, err)
			}
		}
		if !source.IsUnlocked() {
			return nil, kms.ErrSecretLocked
		}
		log.Info("Service secret reconstructed from shares", slog.Int("shares", len(cfg.Shares)))
		return source, nil

	default:
		return nil, fmt.Errorf("unknown secret source %q", cfg.Source)
	}
}

// NewLedger connects the configured ledger.
func NewLedger(ctx context.Context, cfg LedgerConfig, log *slog.Logger) (interfaces.Ledger, error) {
	switch cfg.Kind {
	case LedgerMemory:
		log.Warn("Using in-memory ledger, registrations are not durable")
		return ledger.NewMemoryLedger(), nil

	case LedgerOnchain, "":
		if !ethcommon.IsHexAddress(cfg.ContractAddress) {
			return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
		}

		log.Info("Connecting to Ethereum RPC", "address", cfg.RPCAddr)
		client, err := ethclient.DialContext(ctx, cfg.RPCAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to dial RPC: %w", err)
		}
		return ledger.NewOnchainLedgerClient(client, ethcommon.HexToAddress(cfg.ContractAddress), cfg.Timeout, log)

	default:
		return nil, fmt.Errorf("unknown ledger kind %q", cfg.Kind)
	}
}

func newFunding(cfg LedgerConfig, l interfaces.Ledger) (interfaces.FundingSource, error) {
	if cfg.FunderKey == "" {
		return signing.NoopFunding{}, nil
	}
	funder, err := kms.ParseKeySigner(cfg.FunderKey)
	if err != nil {
		return nil, fmt.Errorf("invalid funder key: %w", err)
	}
	return signing.NewLedgerFunding(l, funder), nil
}
