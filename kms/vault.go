package kms

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

// SignerMaterial is the output of CreateSigner.
type SignerMaterial struct {
	Address      common.Address
	EncryptedKey []byte
	PublicKey    []byte
}

// KeyVault creates and unseals custodial signing keys.
type KeyVault struct {
	envelope *Envelope
}

func NewKeyVault(envelope *Envelope) *KeyVault {
	return &KeyVault{envelope: envelope}
}

// Envelope exposes the vault's envelope for escrow and share wrapping.
func (v *KeyVault) Envelope() *Envelope {
	return v.envelope
}

// CreateSigner generates a fresh signing key. The address is derived from the
// public key and the private key is returned sealed under the service secret.
func (v *KeyVault) CreateSigner(ctx context.Context) (*SignerMaterial, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}

	sealed, err := v.envelope.Seal(ctx, PurposeSigningKey, crypto.FromECDSA(key))
	if err != nil {
		return nil, fmt.Errorf("failed to seal signing key: %w", err)
	}

	return &SignerMaterial{
		Address:      crypto.PubkeyToAddress(key.PublicKey),
		EncryptedKey: sealed,
		PublicKey:    crypto.FromECDSAPub(&key.PublicKey),
	}, nil
}

// ResolveSigner unseals the identity's signing key. It fails with
// ErrKeyRecovery if the key cannot be recovered or does not match the identity.
func (v *KeyVault) ResolveSigner(ctx context.Context, identity *interfaces.Identity) (*KeySigner, error) {
	if len(identity.EncryptedSigningKey) == 0 {
		return nil, fmt.Errorf("%w: identity %s has no signing key", interfaces.ErrKeyRecovery, identity.ID.Hex())
	}

	raw, err := v.envelope.Open(ctx, PurposeSigningKey, identity.EncryptedSigningKey)
	if err != nil {
		return nil, err
	}

	key, err := crypto.ToECDSA(raw)
	clear(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrKeyRecovery, err)
	}

	if crypto.PubkeyToAddress(key.PublicKey) != identity.ID {
		return nil, fmt.Errorf("%w: signing key does not match identity %s", interfaces.ErrKeyRecovery, identity.ID.Hex())
	}

	return NewKeySigner(key), nil
}

// KeySigner is an in-memory signer for one request.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// ParseKeySigner builds a signer from a hex private key, as used for the funding wallet.
func ParseKeySigner(keyHex string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewKeySigner(key), nil
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X"))
}
