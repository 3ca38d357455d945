package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
	"github.com/Dshubhambadola/CivicSeal/kms"
	"github.com/Dshubhambadola/CivicSeal/metrics"
	"github.com/Dshubhambadola/CivicSeal/reconciler"
)

const DefaultUnpinTimeout = 30 * time.Second

// SignerProvider yields a funded ledger signer for an identity.
type SignerProvider interface {
	SignerFor(ctx context.Context, identity *interfaces.Identity) (interfaces.Signer, error)
}

type RegisterRequest struct {
	Content []byte
	// ExplicitHash names content that was transformed (e.g. encrypted) by the
	// client; it must be the hash of the original bytes.
	ExplicitHash *interfaces.ContentHash
	// EscrowKey is the document's symmetric key, held sealed by the service.
	EscrowKey    []byte
	OriginalName string
}

type RegisterResult struct {
	Record            *interfaces.DocumentRecord
	AlreadyRegistered bool
	// TxHash is zero when no ledger write happened.
	TxHash common.Hash
}

type Config struct {
	UnpinTimeout time.Duration
}

type Registry struct {
	ledger     interfaces.Ledger
	documents  interfaces.DocumentStore
	blobs      interfaces.BlobStore
	signers    SignerProvider
	envelope   *kms.Envelope
	reconciler *reconciler.Reconciler
	cfg        Config
	log        *slog.Logger
	metrics    *metrics.Recorder

	unpins sync.WaitGroup
	now    func() time.Time
}

func New(
	ledger interfaces.Ledger,
	documents interfaces.DocumentStore,
	blobs interfaces.BlobStore,
	signers SignerProvider,
	envelope *kms.Envelope,
	rec *reconciler.Reconciler,
	cfg Config,
	log *slog.Logger,
	recorder *metrics.Recorder,
) *Registry {
	if cfg.UnpinTimeout <= 0 {
		cfg.UnpinTimeout = DefaultUnpinTimeout
	}
	return &Registry{
		ledger:     ledger,
		documents:  documents,
		blobs:      blobs,
		signers:    signers,
		envelope:   envelope,
		reconciler: rec,
		cfg:        cfg,
		log:        log,
		metrics:    recorder,
		now:        time.Now,
	}
}

// RegisterDocument registers req.Content for identity. Registering a hash that
// is already known returns the existing record with AlreadyRegistered set.
func (r *Registry) RegisterDocument(ctx context.Context, identity *interfaces.Identity, req RegisterRequest) (*RegisterResult, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", interfaces.ErrInvalidArgument)
	}

	hash := interfaces.Identify(req.Content)
	if req.ExplicitHash != nil {
		if req.ExplicitHash.IsZero() {
			return nil, fmt.Errorf("%w: zero content hash", interfaces.ErrInvalidArgument)
		}
		hash = *req.ExplicitHash
	}

	log := r.log.With(slog.String("hash", hash.Short()), slog.String("identity", identity.ID.Hex()))

	existing, err := r.existingRecord(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Info("Document already registered", slog.String("submitter", existing.SubmitterID.Hex()))
		return &RegisterResult{Record: existing, AlreadyRegistered: true}, nil
	}

	signer, err := r.signers.SignerFor(ctx, identity)
	if err != nil {
		return nil, err
	}

	var escrowed *interfaces.EscrowedKey
	if len(req.EscrowKey) > 0 {
		escrowed, err = r.envelope.SealEscrow(ctx, req.EscrowKey)
		if err != nil {
			return nil, err
		}
	}

	blobRef, err := r.blobs.Put(ctx, req.Content, req.OriginalName)
	if err != nil {
		log.Error("Failed to upload document", "err", err)
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}

	receipt, err := r.ledger.Register(ctx, hash, blobRef, escrowed.Encode(), signer)
	if err != nil {
		if errors.Is(err, interfaces.ErrDuplicate) {
			// Lost the race to another writer between the check and the write.
			log.Info("Concurrent registration detected, returning winner")
			winner, lookupErr := r.existingRecord(ctx, hash)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if winner == nil {
				return nil, err
			}
			return &RegisterResult{Record: winner, AlreadyRegistered: true}, nil
		}

		r.metrics.LedgerError("register")
		log.Error("Ledger registration failed", "err", err, slog.String("blobRef", blobRef))
		return nil, err
	}

	record := &interfaces.DocumentRecord{
		ContentHash:  hash,
		BlobRef:      blobRef,
		SubmitterID:  signer.Address(),
		EscrowedKey:  escrowed,
		OriginalName: req.OriginalName,
		RegisteredAt: r.now().UTC(),
	}

	written, err := r.documents.CreateDocument(ctx, record)
	if err != nil {
		log.Error("Ledger write confirmed but indexing failed", "err", err, slog.String("tx", receipt.TxHash.Hex()))
		return nil, fmt.Errorf("document registered on ledger in %s but not indexed: %w", receipt.TxHash.Hex(), err)
	}
	if !written {
		if indexed, err := r.documents.GetDocument(ctx, hash); err == nil {
			record = indexed
		}
	}

	r.metrics.DocumentRegistered()
	log.Info("Document registered",
		slog.String("tx", receipt.TxHash.Hex()),
		slog.Uint64("block", receipt.BlockNumber))

	return &RegisterResult{Record: record, TxHash: receipt.TxHash}, nil
}

// RevokeDocument revokes hash on behalf of identity and returns the updated
// record. Only the original submitter may revoke, and only once.
func (r *Registry) RevokeDocument(ctx context.Context, identity *interfaces.Identity, hash interfaces.ContentHash) (*interfaces.DocumentRecord, error) {
	log := r.log.With(slog.String("hash", hash.Short()), slog.String("identity", identity.ID.Hex()))

	signer, err := r.signers.SignerFor(ctx, identity)
	if err != nil {
		return nil, err
	}

	receipt, err := r.ledger.Revoke(ctx, hash, signer)
	if err != nil {
		if errors.Is(err, interfaces.ErrLedgerUnavailable) {
			r.metrics.LedgerError("revoke")
		}
		log.Warn("Ledger revocation rejected", "err", err)
		return nil, err
	}

	if err := r.documents.MarkRevoked(ctx, hash); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		log.Error("Ledger revocation confirmed but index update failed", "err", err, slog.String("tx", receipt.TxHash.Hex()))
		return nil, fmt.Errorf("document revoked on ledger in %s but index not updated: %w", receipt.TxHash.Hex(), err)
	}

	record, err := r.existingRecord(ctx, hash)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &interfaces.DocumentRecord{ContentHash: hash, SubmitterID: signer.Address()}
	}
	record.Revoked = true

	r.metrics.DocumentRevoked()
	log.Info("Document revoked", slog.String("tx", receipt.TxHash.Hex()))

	if record.BlobRef != "" {
		r.unpin(record.BlobRef, log)
	}

	return record, nil
}

// Verify returns the reconciled registration state of hash.
func (r *Registry) Verify(ctx context.Context, hash interfaces.ContentHash) (*interfaces.Verification, error) {
	return r.reconciler.Verify(ctx, hash)
}

// ListDocuments returns the indexed documents submitted by identity.
func (r *Registry) ListDocuments(ctx context.Context, identity *interfaces.Identity) ([]*interfaces.DocumentRecord, error) {
	return r.documents.ListDocumentsBySubmitter(ctx, identity.ID)
}

// RecoverKey returns the plain escrowed key of hash to its submitter.
func (r *Registry) RecoverKey(ctx context.Context, identity *interfaces.Identity, hash interfaces.ContentHash) ([]byte, error) {
	record, err := r.existingRecord(ctx, hash)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, interfaces.ErrNotFound
	}
	if !interfaces.SameAddress(record.SubmitterID.Hex(), identity.ID.Hex()) {
		return nil, interfaces.ErrUnauthorized
	}

	return r.envelope.OpenEscrow(ctx, record.EscrowedKey)
}

// Close waits for outstanding background unpins.
func (r *Registry) Close() {
	r.unpins.Wait()
}

// existingRecord returns the record for hash if either store knows it. The
// index row is preferred since it carries the original file name; the
// reconciled answer decides whether the hash is registered at all.
func (r *Registry) existingRecord(ctx context.Context, hash interfaces.ContentHash) (*interfaces.DocumentRecord, error) {
	verification, err := r.reconciler.Verify(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !verification.Registered {
		return nil, nil
	}

	indexed, err := r.documents.GetDocument(ctx, hash)
	switch {
	case err == nil:
		// The ledger's revocation flag wins over a stale index.
		indexed.Revoked = indexed.Revoked || verification.Revoked
		return indexed, nil
	case errors.Is(err, interfaces.ErrNotFound):
		return &interfaces.DocumentRecord{
			ContentHash:  hash,
			BlobRef:      verification.BlobRef,
			SubmitterID:  verification.Submitter,
			EscrowedKey:  verification.EscrowedKey,
			RegisteredAt: verification.Timestamp,
			Revoked:      verification.Revoked,
		}, nil
	default:
		return nil, err
	}
}

func (r *Registry) unpin(blobRef string, log *slog.Logger) {
	r.unpins.Add(1)
	go func() {
		defer r.unpins.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.UnpinTimeout)
		defer cancel()

		if err := r.blobs.Delete(ctx, blobRef); err != nil && !errors.Is(err, interfaces.ErrBlobNotFound) {
			r.metrics.UnpinFailure()
			log.Warn("Failed to unpin revoked document", "err", err, slog.String("blobRef", blobRef))
			return
		}
		log.Debug("Unpinned revoked document", slog.String("blobRef", blobRef))
	}()
}
