package app

import (
	"math/big"
	"time"
)

const (
	LedgerOnchain = "onchain"
	LedgerMemory  = "memory"

	SecretStatic = "static"
	SecretVault  = "vault"
	SecretShamir = "shamir"
)

type LedgerConfig struct {
	// Kind is LedgerOnchain or LedgerMemory. The memory ledger is for
	// development only and forgets everything on restart.
	Kind            string
	RPCAddr         string
	ContractAddress string
	Timeout         time.Duration
	// FunderKey is the hex private key that tops up user wallets. Empty
	// disables funding.
	FunderKey  string
	MinBalance *big.Int
	TopUp      *big.Int
}

type SecretConfig struct {
	Source        string
	ServiceSecret string

	VaultAddr  string
	VaultToken string
	VaultMount string
	VaultPath  string

	Shares    []string
	Threshold int
}

type Config struct {
	Ledger     LedgerConfig
	IndexDSN   string
	BlobStores []string
	Secret     SecretConfig

	TokenTTL       time.Duration
	UnpinTimeout   time.Duration
	PublicURL      string
	MaxUploadBytes int64
}
