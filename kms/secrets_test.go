package kms

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultSecret_ReadsKV2(t *testing.T) {
	secret := make([]byte, 32)
	for i := range secret {
		secret[i] = byte(i + 1)
	}

	var reads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/civicseal/service" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		reads.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"secret":"` + hex.EncodeToString(secret) + `"},"metadata":{"version":1}}}`))
	}))
	defer srv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	source, err := NewVaultSecret(srv.URL, "test-token", "secret/", "/civicseal/service", log)
	require.NoError(t, err)

	got, err := source.ServiceSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	_, err = source.ServiceSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), reads.Load(), "secret is read once")
}

func TestVaultSecret_Missing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"other":"x"}}}`))
	}))
	defer srv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	source, err := NewVaultSecret(srv.URL, "t", "secret", "civicseal", log)
	require.NoError(t, err)

	_, err = source.ServiceSecret(context.Background())
	assert.Error(t, err)
}
