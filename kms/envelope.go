package kms

import (
	"context"
	"fmt"

	"github.com/Dshubhambadola/CivicSeal/cryptoutils"
	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

const (
	PurposeSigningKey   = "signing-key"
	PurposeEscrow       = "escrow"
	PurposeSessionToken = "session-token"
)

// SharePurpose returns the envelope purpose for keys wrapped for a recipient.
func SharePurpose(recipient string) string {
	return "share:" + normalizeAddress(recipient)
}

// Envelope seals and opens data under keys derived from the service secret.
type Envelope struct {
	source interfaces.SecretSource
}

func NewEnvelope(source interfaces.SecretSource) *Envelope {
	return &Envelope{source: source}
}

// DeriveKey returns the purpose-bound key.
func (e *Envelope) DeriveKey(ctx context.Context, purpose string) ([]byte, error) {
	secret, err := e.source.ServiceSecret(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain service secret: %w", err)
	}
	return cryptoutils.DeriveKey(secret, "civicseal/"+purpose)
}

// Seal encrypts plaintext for purpose.
func (e *Envelope) Seal(ctx context.Context, purpose string, plaintext []byte) ([]byte, error) {
	key, err := e.DeriveKey(ctx, purpose)
	if err != nil {
		return nil, err
	}
	return cryptoutils.Seal(key, plaintext)
}

// Open decrypts data sealed for purpose. Any failure is an ErrKeyRecovery.
func (e *Envelope) Open(ctx context.Context, purpose string, sealed []byte) ([]byte, error) {
	key, err := e.DeriveKey(ctx, purpose)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrKeyRecovery, err)
	}

	plaintext, err := cryptoutils.Open(key, sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrKeyRecovery, err)
	}
	return plaintext, nil
}

// OpenEscrow returns the raw key material of an escrowed key regardless of kind.
func (e *Envelope) OpenEscrow(ctx context.Context, key *interfaces.EscrowedKey) ([]byte, error) {
	if key == nil {
		return nil, interfaces.ErrNoEscrowKey
	}

	switch key.Kind {
	case interfaces.EscrowPlain:
		return key.Material, nil
	case interfaces.EscrowWrapped:
		return e.Open(ctx, PurposeEscrow, key.Material)
	default:
		return nil, fmt.Errorf("%w: unknown escrow kind %s", interfaces.ErrKeyRecovery, key.Kind)
	}
}

// SealEscrow wraps raw document key material for storage.
func (e *Envelope) SealEscrow(ctx context.Context, material []byte) (*interfaces.EscrowedKey, error) {
	sealed, err := e.Seal(ctx, PurposeEscrow, material)
	if err != nil {
		return nil, err
	}
	return interfaces.WrappedKey(sealed), nil
}
