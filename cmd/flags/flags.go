package flags

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/Dshubhambadola/CivicSeal/api"
	"github.com/Dshubhambadola/CivicSeal/app"
	"github.com/Dshubhambadola/CivicSeal/common"
)

const envPrefix = "CIVICSEAL_"

func env(name string) []string {
	return []string{envPrefix + name}
}

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(LogDebugFlag.Name),
		JSON:    cCtx.Bool(LogJsonFlag.Name),
		Service: cCtx.String(LogServiceFlag.Name),
		Version: common.Version,
	})

	if cCtx.Bool(LogUidFlag.Name) {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: api.DefaultGracefulShutdown,
		ReadHeaderTimeout:        api.DefaultReadHeaderTimeout,
		ReadTimeout:              api.DefaultReadTimeout,
		WriteTimeout:             api.DefaultWriteTimeout,
	}
}

// ConfigureApp reads the service configuration from flags.
func ConfigureApp(cCtx *cli.Context) (*app.Config, error) {
	minBalance, err := parseWei(cCtx.String(MinBalanceFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", MinBalanceFlag.Name, err)
	}
	topUp, err := parseWei(cCtx.String(TopUpFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", TopUpFlag.Name, err)
	}

	return &app.Config{
		Ledger: app.LedgerConfig{
			Kind:            cCtx.String(LedgerFlag.Name),
			RPCAddr:         cCtx.String(RpcAddrFlag.Name),
			ContractAddress: cCtx.String(ContractAddressFlag.Name),
			Timeout:         cCtx.Duration(LedgerTimeoutFlag.Name),
			FunderKey:       cCtx.String(FunderKeyFlag.Name),
			MinBalance:      minBalance,
			TopUp:           topUp,
		},
		IndexDSN:   cCtx.String(IndexDSNFlag.Name),
		BlobStores: cCtx.StringSlice(BlobStoreFlag.Name),
		Secret: app.SecretConfig{
			Source:        cCtx.String(SecretSourceFlag.Name),
			ServiceSecret: cCtx.String(ServiceSecretFlag.Name),
			VaultAddr:     cCtx.String(VaultAddrFlag.Name),
			VaultToken:    cCtx.String(VaultTokenFlag.Name),
			VaultMount:    cCtx.String(VaultMountFlag.Name),
			VaultPath:     cCtx.String(VaultPathFlag.Name),
			Shares:        cCtx.StringSlice(SecretSharesFlag.Name),
			Threshold:     cCtx.Int(SecretThresholdFlag.Name),
		},
		TokenTTL:       cCtx.Duration(TokenTTLFlag.Name),
		UnpinTimeout:   cCtx.Duration(UnpinTimeoutFlag.Name),
		PublicURL:      cCtx.String(PublicURLFlag.Name),
		MaxUploadBytes: cCtx.Int64(MaxUploadBytesFlag.Name),
	}, nil
}

// parseWei parses a decimal wei amount. Empty selects the default.
func parseWei(value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%q is not a wei amount", value)
	}
	return amount, nil
}

var LogJsonFlag = &cli.BoolFlag{
	Name:    "log-json",
	Value:   false,
	Usage:   "log in JSON format",
	EnvVars: env("LOG_JSON"),
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Value:   false,
	Usage:   "log debug messages",
	EnvVars: env("LOG_DEBUG"),
}
var LogUidFlag = &cli.BoolFlag{
	Name:    "log-uid",
	Value:   false,
	Usage:   "generate a uuid and add to all log messages",
	EnvVars: env("LOG_UID"),
}
var LogServiceFlag = &cli.StringFlag{
	Name:    "log-service",
	Value:   common.PackageName,
	Usage:   "add 'service' tag to logs",
	EnvVars: env("LOG_SERVICE"),
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: env("LISTEN_ADDR"),
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:    "metrics-addr",
	Value:   "127.0.0.1:8090",
	Usage:   "address to listen on for Prometheus metrics, empty to disable",
	EnvVars: env("METRICS_ADDR"),
}
var PprofFlag = &cli.BoolFlag{
	Name:    "pprof",
	Value:   false,
	Usage:   "enable pprof debug endpoint",
	EnvVars: env("PPROF"),
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:    "drain-seconds",
	Value:   45,
	Usage:   "seconds to wait in drain HTTP request",
	EnvVars: env("DRAIN_SECONDS"),
}
var PublicURLFlag = &cli.StringFlag{
	Name:    "public-url",
	Value:   "http://localhost:3000",
	Usage:   "base URL used when returning public verification links",
	EnvVars: env("PUBLIC_URL"),
}
var MaxUploadBytesFlag = &cli.Int64Flag{
	Name:    "max-upload-bytes",
	Value:   api.DefaultMaxUploadBytes,
	Usage:   "maximum accepted document upload size",
	EnvVars: env("MAX_UPLOAD_BYTES"),
}

var LedgerFlag = &cli.StringFlag{
	Name:    "ledger",
	Value:   app.LedgerOnchain,
	Usage:   "ledger implementation: 'onchain' or 'memory' (development only)",
	EnvVars: env("LEDGER"),
}
var RpcAddrFlag = &cli.StringFlag{
	Name:    "rpc-addr",
	Value:   "http://127.0.0.1:8545",
	Usage:   "address to connect to RPC",
	EnvVars: env("RPC_ADDR"),
}
var ContractAddressFlag = &cli.StringFlag{
	Name:    "contract-address",
	Usage:   "DocumentRegistry contract address, 0x-prefixed hex",
	EnvVars: env("CONTRACT_ADDRESS"),
}
var LedgerTimeoutFlag = &cli.DurationFlag{
	Name:    "ledger-timeout",
	Value:   60 * time.Second,
	Usage:   "bound on every ledger call including confirmation",
	EnvVars: env("LEDGER_TIMEOUT"),
}
var FunderKeyFlag = &cli.StringFlag{
	Name:    "funder-key",
	Usage:   "hex private key of the wallet that funds user wallets, empty disables funding",
	EnvVars: env("FUNDER_KEY"),
}
var MinBalanceFlag = &cli.StringFlag{
	Name:    "min-balance-wei",
	Usage:   "top up wallets whose balance falls below this amount (default 0.01 ETH)",
	EnvVars: env("MIN_BALANCE_WEI"),
}
var TopUpFlag = &cli.StringFlag{
	Name:    "top-up-wei",
	Usage:   "amount sent when topping up a wallet (default 0.1 ETH)",
	EnvVars: env("TOP_UP_WEI"),
}

var IndexDSNFlag = &cli.StringFlag{
	Name:    "index-dsn",
	Value:   "sqlite://civicseal.db",
	Usage:   "index database: postgres://... or sqlite://path or sqlite::memory:",
	EnvVars: env("INDEX_DSN"),
}
var BlobStoreFlag = &cli.StringSliceFlag{
	Name:    "blob-store",
	Value:   cli.NewStringSlice("ipfs://127.0.0.1:5001"),
	Usage:   "blob store URI (ipfs://, s3://, file://, badger://), repeat for failover",
	EnvVars: env("BLOB_STORE"),
}
var UnpinTimeoutFlag = &cli.DurationFlag{
	Name:    "unpin-timeout",
	Value:   30 * time.Second,
	Usage:   "bound on unpinning a revoked document",
	EnvVars: env("UNPIN_TIMEOUT"),
}

var SecretSourceFlag = &cli.StringFlag{
	Name:    "secret-source",
	Value:   app.SecretStatic,
	Usage:   "service secret source: 'static', 'vault' or 'shamir'",
	EnvVars: env("SECRET_SOURCE"),
}
var ServiceSecretFlag = &cli.StringFlag{
	Name:    "service-secret",
	Usage:   "hex service secret of at least 32 bytes (static source)",
	EnvVars: env("SERVICE_SECRET"),
}
var VaultAddrFlag = &cli.StringFlag{
	Name:    "vault-addr",
	Usage:   "Vault server address (vault source)",
	EnvVars: env("VAULT_ADDR"),
}
var VaultTokenFlag = &cli.StringFlag{
	Name:    "vault-token",
	Usage:   "Vault token (vault source)",
	EnvVars: env("VAULT_TOKEN"),
}
var VaultMountFlag = &cli.StringFlag{
	Name:    "vault-mount",
	Value:   "secret",
	Usage:   "Vault KV v2 mount (vault source)",
	EnvVars: env("VAULT_MOUNT"),
}
var VaultPathFlag = &cli.StringFlag{
	Name:    "vault-path",
	Value:   "civicseal/service",
	Usage:   "path of the service secret within the mount (vault source)",
	EnvVars: env("VAULT_PATH"),
}
var SecretSharesFlag = &cli.StringSliceFlag{
	Name:    "secret-shares",
	Usage:   "hex Shamir shares of the service secret (shamir source)",
	EnvVars: env("SECRET_SHARES"),
}
var SecretThresholdFlag = &cli.IntFlag{
	Name:    "secret-threshold",
	Value:   2,
	Usage:   "number of shares needed to reconstruct the secret (shamir source)",
	EnvVars: env("SECRET_THRESHOLD"),
}

var TokenTTLFlag = &cli.DurationFlag{
	Name:    "token-ttl",
	Value:   24 * time.Hour,
	Usage:   "session token lifetime",
	EnvVars: env("TOKEN_TTL"),
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

// IndexFlags are needed by every command that touches the index.
var IndexFlags = []cli.Flag{
	IndexDSNFlag,
}

var ServeFlags = []cli.Flag{
	ListenAddrFlag,
	MetricsAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	PublicURLFlag,
	MaxUploadBytesFlag,
	LedgerFlag,
	RpcAddrFlag,
	ContractAddressFlag,
	LedgerTimeoutFlag,
	FunderKeyFlag,
	MinBalanceFlag,
	TopUpFlag,
	BlobStoreFlag,
	UnpinTimeoutFlag,
	SecretSourceFlag,
	ServiceSecretFlag,
	VaultAddrFlag,
	VaultTokenFlag,
	VaultMountFlag,
	VaultPathFlag,
	SecretSharesFlag,
	SecretThresholdFlag,
	TokenTTLFlag,
}
