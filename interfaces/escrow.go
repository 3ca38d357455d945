package interfaces

import (
	"encoding/base64"
	"fmt"
)

// NoEscrowKey is the ledger placeholder written when a document has no escrowed key.
const NoEscrowKey = "NO_KEY"

// EscrowKind distinguishes how escrowed key material is held at rest.
type EscrowKind byte

const (
	// EscrowPlain holds raw symmetric key material.
	EscrowPlain EscrowKind = 1
	// EscrowWrapped holds key material sealed under the service-wide secret.
	EscrowWrapped EscrowKind = 2
)

// String returns the kind name.
func (k EscrowKind) String() string {
	switch k {
	case EscrowPlain:
		return "plain"
	case EscrowWrapped:
		return "wrapped"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

// EscrowedKey is a document's symmetric key as stored by the service.
type EscrowedKey struct {
	Kind     EscrowKind
	Material []byte
}

// PlainKey tags raw key material.
func PlainKey(material []byte) *EscrowedKey {
	return &EscrowedKey{Kind: EscrowPlain, Material: material}
}

// WrappedKey tags sealed key material.
func WrappedKey(material []byte) *EscrowedKey {
	return &EscrowedKey{Kind: EscrowWrapped, Material: material}
}

// Encode serializes the key as base64(kind || material). A nil key encodes to
// the NoEscrowKey placeholder.
func (k *EscrowedKey) Encode() string {
	if k == nil {
		return NoEscrowKey
	}
	buf := make([]byte, 0, 1+len(k.Material))
	buf = append(buf, byte(k.Kind))
	buf = append(buf, k.Material...)
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeEscrowedKey parses a value produced by Encode. The placeholder and the
// empty string decode to a nil key.
func DecodeEscrowedKey(encoded string) (*EscrowedKey, error) {
	if encoded == "" || encoded == NoEscrowKey {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed escrowed key: %v", ErrKeyRecovery, err)
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: escrowed key too short", ErrKeyRecovery)
	}

	kind := EscrowKind(raw[0])
	if kind != EscrowPlain && kind != EscrowWrapped {
		return nil, fmt.Errorf("%w: unknown escrow kind %d", ErrKeyRecovery, raw[0])
	}

	return &EscrowedKey{Kind: kind, Material: raw[1:]}, nil
}
