package kms

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/vault/api"
)

// MinSecretLength is the minimum accepted service secret size in bytes.
const MinSecretLength = 32

var ErrSecretTooShort = fmt.Errorf("service secret must be at least %d bytes", MinSecretLength)

// StaticSecret is a service secret supplied through configuration.
type StaticSecret struct {
	secret []byte
}

func NewStaticSecret(secret []byte) (*StaticSecret, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	return &StaticSecret{secret: append([]byte(nil), secret...)}, nil
}

// NewStaticSecretFromHex parses a hex encoded secret.
func NewStaticSecretFromHex(secretHex string) (*StaticSecret, error) {
	secret, err := hex.DecodeString(strings.TrimPrefix(secretHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid service secret hex: %w", err)
	}
	return NewStaticSecret(secret)
}

func (s *StaticSecret) ServiceSecret(ctx context.Context) ([]byte, error) {
	return s.secret, nil
}

// VaultSecret reads the service secret from a HashiCorp Vault KV v2 mount.
// The secret is expected hex encoded under the "secret" field.
type VaultSecret struct {
	client    *api.Client
	mountPath string
	dataPath  string
	log       *slog.Logger

	mu     sync.Mutex
	cached []byte
}

// NewVaultSecret creates a Vault-backed secret source.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - token: Vault token with read access to the path
//   - mountPath: KV v2 mount (e.g. "secret")
//   - dataPath: path within the mount (e.g. "civicseal/service")
func NewVaultSecret(address, token, mountPath, dataPath string, log *slog.Logger) (*VaultSecret, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	return &VaultSecret{
		client:    client,
		mountPath: strings.Trim(mountPath, "/"),
		dataPath:  strings.Trim(dataPath, "/"),
		log:       log,
	}, nil
}

// ServiceSecret fetches the secret on first use and keeps it for the process lifetime.
func (s *VaultSecret) ServiceSecret(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return s.cached, nil
	}

	path := fmt.Sprintf("%s/data/%s", s.mountPath, s.dataPath)
	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read service secret from Vault", slog.String("path", path), "err", err)
		return nil, fmt.Errorf("failed to read from Vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no secret at %s", path)
	}

	value, err := extractKV2Field(secret.Data, "secret")
	if err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid service secret hex in Vault: %w", err)
	}
	if len(raw) < MinSecretLength {
		return nil, ErrSecretTooShort
	}

	s.log.Info("Loaded service secret from Vault", slog.String("path", path))
	s.cached = raw
	return raw, nil
}

// extractKV2Field pulls a string field out of a KV v2 response body.
func extractKV2Field(body map[string]interface{}, field string) (string, error) {
	data, ok := body["data"].(map[string]interface{})
	if !ok {
		return "", errors.New("invalid data format in Vault response")
	}

	value, ok := data[field].(string)
	if !ok {
		return "", fmt.Errorf("field %q not found in Vault data", field)
	}
	return value, nil
}
