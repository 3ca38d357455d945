package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

const badgerBlobPrefix = "blob/"

// BadgerBackend keeps blobs in an embedded Badger key-value store.
type BadgerBackend struct {
	db          *badger.DB
	log         *slog.Logger
	name        string
	locationURI string
}

// NewBadgerBackend opens a Badger store at dir. An empty dir opens an
// in-memory store.
func NewBadgerBackend(dir string, log *slog.Logger) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	name := "badger-" + dir
	if dir == "" {
		opts = opts.WithInMemory(true)
		name = "badger-memory"
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	return &BadgerBackend{
		db:          db,
		log:         log,
		name:        name,
		locationURI: "badger://" + dir,
	}, nil
}

func (b *BadgerBackend) Put(ctx context.Context, data []byte, name string) (string, error) {
	ref := uuid.NewString()

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blobKey(ref), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}

	b.log.Debug("Stored content in badger",
		slog.String("ref", ref),
		slog.String("name", name),
		slog.Int("size", len(data)))

	return ref, nil
}

func (b *BadgerBackend) Get(ctx context.Context, ref string) ([]byte, error) {
	var data []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(ref))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, interfaces.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

func (b *BadgerBackend) Delete(ctx context.Context, ref string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(blobKey(ref)); err != nil {
			return err
		}
		return txn.Delete(blobKey(ref))
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return interfaces.ErrBlobNotFound
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (b *BadgerBackend) Available(ctx context.Context) bool {
	return !b.db.IsClosed()
}

func (b *BadgerBackend) Name() string {
	return b.name
}

func (b *BadgerBackend) LocationURI() string {
	return b.locationURI
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

func blobKey(ref string) []byte {
	return []byte(badgerBlobPrefix + ref)
}
