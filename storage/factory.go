package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

const defaultIPFSTimeout = 30 * time.Second

// StorageBackendFactory creates blob stores from URI strings.
type StorageBackendFactory struct {
	log *slog.Logger
}

func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{log: logger}
}

// BlobStoreFor creates a blob store from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - ipfs:// - IPFS node HTTP API
//   - s3:// - Amazon S3 or compatible object storage
//   - file:// - Local filesystem storage
//   - badger:// - Embedded Badger key-value store
func (sf *StorageBackendFactory) BlobStoreFor(locationURI string) (interfaces.BlobStore, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "ipfs":
		return sf.createIPFSBackend(u)
	case "s3":
		return sf.createS3Backend(u)
	case "file":
		return sf.createFileBackend(u)
	case "badger":
		return sf.createBadgerBackend(u)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme %q", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// CreateMultiBackend creates a store for each URI. A single URI yields the
// backend itself; several are wrapped in a MultiBlobStore.
func (sf *StorageBackendFactory) CreateMultiBackend(locationURIs []string) (interfaces.BlobStore, error) {
	backends := make([]interfaces.BlobStore, 0, len(locationURIs))

	for _, uri := range locationURIs {
		backend, err := sf.BlobStoreFor(uri)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", uri))
			continue
		}
		backends = append(backends, backend)
	}

	switch len(backends) {
	case 0:
		return nil, fmt.Errorf("no valid storage backends created")
	case 1:
		return backends[0], nil
	default:
		return NewMultiBlobStore(backends, sf.log), nil
	}
}

// createIPFSBackend handles ipfs://host:port/?timeout=30s
func (sf *StorageBackendFactory) createIPFSBackend(u *url.URL) (interfaces.BlobStore, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", u.String()))

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing IPFS host", interfaces.ErrInvalidLocationURI)
	}
	port := u.Port()
	if port == "" {
		port = "5001"
	}

	timeout := defaultIPFSTimeout
	if raw := u.Query().Get("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
		timeout = parsed
	}

	return NewIPFSBackend(host, port, timeout, sf.log), nil
}

// createS3Backend handles s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix/?region=us-west-2&endpoint=http://minio:9000
// A custom endpoint implies path-style addressing.
func (sf *StorageBackendFactory) createS3Backend(u *url.URL) (interfaces.BlobStore, error) {
	sf.log.Debug("Creating S3 backend", slog.String("bucket", u.Host))

	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing S3 bucket", interfaces.ErrInvalidLocationURI)
	}

	query := u.Query()
	cfg := S3Config{
		Bucket:   u.Host,
		Prefix:   strings.TrimPrefix(u.Path, "/"),
		Region:   query.Get("region"),
		Endpoint: query.Get("endpoint"),
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	cfg.PathStyle = cfg.Endpoint != "" || query.Get("pathStyle") == "true"

	if u.User != nil {
		cfg.AccessKey = u.User.Username()
		cfg.SecretKey, _ = u.User.Password()
	}

	return NewS3Backend(cfg, sf.log)
}

// createFileBackend handles file:///absolute/path or file://./relative/path
func (sf *StorageBackendFactory) createFileBackend(u *url.URL) (interfaces.BlobStore, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, u.String())
	}

	return NewFileBackend(path, sf.log)
}

// createBadgerBackend handles badger:///path and badger://memory
func (sf *StorageBackendFactory) createBadgerBackend(u *url.URL) (interfaces.BlobStore, error) {
	sf.log.Debug("Creating badger backend", slog.String("uri", u.String()))

	if u.Host == "memory" {
		return NewBadgerBackend("", sf.log)
	}

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in badger URI %s", interfaces.ErrInvalidLocationURI, u.String())
	}

	return NewBadgerBackend(path, sf.log)
}
