package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

const refSeparator = ":"

// MultiBlobStore fails over between several backends. References it returns
// carry the name of the backend that holds the blob.
type MultiBlobStore struct {
	backends []interfaces.BlobStore
	log      *slog.Logger
}

func NewMultiBlobStore(backends []interfaces.BlobStore, logger *slog.Logger) *MultiBlobStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiBlobStore{
		backends: backends,
		log:      logger,
	}
}

// Put writes to the first available backend that accepts the data.
func (m *MultiBlobStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	start := time.Now()
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		ref, err := backend.Put(ctx, data, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to store in backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}

		m.log.Debug("Stored content",
			slog.String("backend_name", backend.Name()),
			slog.Duration("duration", time.Since(start)))
		return backend.Name() + refSeparator + ref, nil
	}

	if len(errs) == 0 {
		return "", interfaces.ErrBackendUnavailable
	}
	return "", fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, errors.Join(errs...))
}

// Get reads from the backend named in ref. Unrouted refs are tried against
// every backend in order.
func (m *MultiBlobStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if backend, inner, ok := m.route(ref); ok {
		return backend.Get(ctx, inner)
	}

	var errs []error
	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			continue
		}
		data, err := backend.Get(ctx, ref)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, interfaces.ErrBlobNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, interfaces.ErrBlobNotFound
}

func (m *MultiBlobStore) Delete(ctx context.Context, ref string) error {
	if backend, inner, ok := m.route(ref); ok {
		return backend.Delete(ctx, inner)
	}

	var errs []error
	for _, backend := range m.backends {
		err := backend.Delete(ctx, ref)
		if err == nil {
			return nil
		}
		if !errors.Is(err, interfaces.ErrBlobNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return interfaces.ErrBlobNotFound
}

// Available reports whether any backend is available.
func (m *MultiBlobStore) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiBlobStore) Name() string {
	names := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		names = append(names, backend.Name())
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (m *MultiBlobStore) route(ref string) (interfaces.BlobStore, string, bool) {
	for _, backend := range m.backends {
		prefix := backend.Name() + refSeparator
		if strings.HasPrefix(ref, prefix) {
			return backend, strings.TrimPrefix(ref, prefix), true
		}
	}
	return nil, "", false
}

// Close closes every backend holding resources.
func (m *MultiBlobStore) Close() error {
	var errs []error
	for _, backend := range m.backends {
		if closer, ok := backend.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
