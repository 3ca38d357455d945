package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

// FileBackend keeps blobs as files in a single directory.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

func (b *FileBackend) Put(ctx context.Context, data []byte, name string) (string, error) {
	ref := uuid.NewString()
	filePath := filepath.Join(b.baseDir, ref)

	if err := os.WriteFile(filePath, data, 0o640); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Stored content in file",
		slog.String("path", filePath),
		slog.String("name", name))

	return ref, nil
}

func (b *FileBackend) Get(ctx context.Context, ref string) ([]byte, error) {
	filePath, err := b.pathFor(ref)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, interfaces.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched content from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

func (b *FileBackend) Delete(ctx context.Context, ref string) error {
	filePath, err := b.pathFor(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return interfaces.ErrBlobNotFound
		}
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func (b *FileBackend) Available(ctx context.Context) bool {
	if _, err := os.Stat(b.baseDir); err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// pathFor only accepts refs this backend issued, keeping lookups inside baseDir.
func (b *FileBackend) pathFor(ref string) (string, error) {
	if _, err := uuid.Parse(ref); err != nil {
		return "", interfaces.ErrBlobNotFound
	}
	return filepath.Join(b.baseDir, ref), nil
}
