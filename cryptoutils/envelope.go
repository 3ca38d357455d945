package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SealVersion prefixes every sealed payload so the format can evolve.
const SealVersion byte = 0x01

// KeySize is the AES-256 key length produced by DeriveKey.
const KeySize = 32

var (
	// ErrCiphertextTooShort is returned when sealed data cannot hold a nonce.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	// ErrUnknownSealVersion is returned for payloads from an unknown format.
	ErrUnknownSealVersion = errors.New("unknown seal version")
)

// DeriveKey expands secret into a KeySize key bound to info using HKDF-SHA256.
func DeriveKey(secret []byte, info string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty secret")
	}

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext with AES-256-GCM.
// Format: [version (1 byte)][nonce (12 bytes)][ciphertext+tag]
func Seal(key, plaintext []byte) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+aesGCM.Overhead())
	out = append(out, SealVersion)
	out = append(out, nonce...)
	return aesGCM.Seal(out, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal.
func Open(key, sealed []byte) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < 1+aesGCM.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	if sealed[0] != SealVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSealVersion, sealed[0])
	}

	nonce := sealed[1 : 1+aesGCM.NonceSize()]
	plaintext, err := aesGCM.Open(nil, nonce, sealed[1+aesGCM.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
