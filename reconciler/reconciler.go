// Package reconciler answers "is this content registered?" by consulting the
// ledger first and falling back to the local index. The two stores are never
// merged or repaired; the answer records which source produced it.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

// Source is one place a verification answer can come from. Lookup returns a
// Verification with Registered false when the source does not know the hash.
type Source interface {
	Name() interfaces.VerificationSource
	Lookup(ctx context.Context, hash interfaces.ContentHash) (*interfaces.Verification, error)
}

// Observer is notified of every answer. Used for metrics.
type Observer func(source interfaces.VerificationSource)

// Reconciler tries its sources in order. The first source that knows the hash
// wins. A source failing with ErrLedgerUnavailable is skipped; any other error
// aborts verification.
type Reconciler struct {
	sources  []Source
	log      *slog.Logger
	observer Observer
}

// New creates a reconciler over sources in priority order.
func New(log *slog.Logger, sources ...Source) *Reconciler {
	return &Reconciler{sources: sources, log: log}
}

// NewLedgerFirst is the standard composition: ledger authoritative, index fallback.
func NewLedgerFirst(ledger interfaces.Ledger, docs interfaces.DocumentStore, log *slog.Logger) *Reconciler {
	return New(log, NewLedgerSource(ledger), NewIndexSource(docs))
}

// WithObserver sets a callback invoked with the source of every answer.
func (r *Reconciler) WithObserver(observer Observer) *Reconciler {
	r.observer = observer
	return r
}

// Verify returns the reconciled verification of hash.
func (r *Reconciler) Verify(ctx context.Context, hash interfaces.ContentHash) (*interfaces.Verification, error) {
	for _, source := range r.sources {
		result, err := source.Lookup(ctx, hash)
		if err != nil {
			if errors.Is(err, interfaces.ErrLedgerUnavailable) {
				r.log.Info("Verification source unavailable, falling back",
					slog.String("source", string(source.Name())),
					slog.String("hash", hash.Short()),
					"err", err)
				continue
			}
			return nil, fmt.Errorf("%s lookup: %w", source.Name(), err)
		}

		if result.Registered {
			r.observe(result.Source)
			return result, nil
		}
	}

	r.observe(interfaces.SourceNone)
	return &interfaces.Verification{Hash: hash, Source: interfaces.SourceNone}, nil
}

func (r *Reconciler) observe(source interfaces.VerificationSource) {
	if r.observer != nil {
		r.observer(source)
	}
}

// LedgerSource reads the authoritative ledger.
type LedgerSource struct {
	ledger interfaces.Ledger
}

func NewLedgerSource(ledger interfaces.Ledger) *LedgerSource {
	return &LedgerSource{ledger: ledger}
}

func (s *LedgerSource) Name() interfaces.VerificationSource {
	return interfaces.SourceLedger
}

func (s *LedgerSource) Lookup(ctx context.Context, hash interfaces.ContentHash) (*interfaces.Verification, error) {
	record, err := s.ledger.Lookup(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !record.Exists {
		return &interfaces.Verification{Hash: hash, Source: interfaces.SourceLedger}, nil
	}

	// Unreadable key material does not affect the registration itself.
	escrowed, _ := interfaces.DecodeEscrowedKey(record.EscrowedKey)

	return &interfaces.Verification{
		Hash:        hash,
		Registered:  true,
		Revoked:     record.Revoked,
		Submitter:   record.Submitter,
		Timestamp:   record.Timestamp,
		BlobRef:     record.BlobRef,
		EscrowedKey: escrowed,
		Source:      interfaces.SourceLedger,
	}, nil
}

// IndexSource reads the local index. Its answers are never chain-confirmed.
type IndexSource struct {
	docs interfaces.DocumentStore
}

func NewIndexSource(docs interfaces.DocumentStore) *IndexSource {
	return &IndexSource{docs: docs}
}

func (s *IndexSource) Name() interfaces.VerificationSource {
	return interfaces.SourceIndex
}

func (s *IndexSource) Lookup(ctx context.Context, hash interfaces.ContentHash) (*interfaces.Verification, error) {
	record, err := s.docs.GetDocument(ctx, hash)
	if errors.Is(err, interfaces.ErrNotFound) {
		return &interfaces.Verification{Hash: hash, Source: interfaces.SourceIndex}, nil
	}
	if err != nil {
		return nil, err
	}

	return FromRecord(record), nil
}

// FromRecord builds an index-sourced verification from a document record.
func FromRecord(record *interfaces.DocumentRecord) *interfaces.Verification {
	return &interfaces.Verification{
		Hash:        record.ContentHash,
		Registered:  true,
		Revoked:     record.Revoked,
		Submitter:   record.SubmitterID,
		Timestamp:   record.RegisteredAt,
		BlobRef:     record.BlobRef,
		EscrowedKey: record.EscrowedKey,
		Source:      interfaces.SourceIndex,
	}
}
