package interfaces

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ContentHash is a 32-byte SHA-256 digest uniquely identifying document content.
type ContentHash [32]byte

// Identify computes the content hash of data.
func Identify(data []byte) ContentHash {
	return ContentHash(sha256.Sum256(data))
}

// ParseContentHash parses a 64 character hex string, with or without 0x prefix.
func ParseContentHash(source string) (ContentHash, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(source), "0x"), "0X")
	if len(clean) != 64 {
		return ContentHash{}, errors.New("invalid content hash length: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return ContentHash{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var hash ContentHash
	copy(hash[:], raw)
	return hash, nil
}

// String returns the 0x-prefixed lowercase hex representation.
func (h ContentHash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Short returns the first 8 bytes as hex, for logging.
func (h ContentHash) Short() string {
	return hex.EncodeToString(h[:8])
}

// Bytes returns the raw 32-byte digest.
func (h ContentHash) Bytes() []byte {
	return h[:]
}

// Equal compares two content hashes.
func (h ContentHash) Equal(other ContentHash) bool {
	return bytes.Equal(h[:], other[:])
}

// IsZero reports whether the hash is unset.
func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

func (h ContentHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *ContentHash) UnmarshalText(text []byte) error {
	parsed, err := ParseContentHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
