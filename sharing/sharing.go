package sharing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
	"github.com/Dshubhambadola/CivicSeal/kms"
	"github.com/Dshubhambadola/CivicSeal/metrics"
	"github.com/Dshubhambadola/CivicSeal/reconciler"
)

const defaultFilename = "shared_document.enc"

// SharedDocument is what a recipient needs to fetch and decrypt a shared document.
type SharedDocument struct {
	Hash     interfaces.ContentHash `json:"hash"`
	BlobRef  string                 `json:"blobRef"`
	Key      []byte                 `json:"fileKey"`
	Filename string                 `json:"filename"`
}

type Engine struct {
	documents  interfaces.DocumentStore
	shares     interfaces.ShareStore
	identities interfaces.IdentityStore
	envelope   *kms.Envelope
	reconciler *reconciler.Reconciler
	log        *slog.Logger
	metrics    *metrics.Recorder

	now func() time.Time
}

func NewEngine(
	documents interfaces.DocumentStore,
	shares interfaces.ShareStore,
	identities interfaces.IdentityStore,
	envelope *kms.Envelope,
	rec *reconciler.Reconciler,
	log *slog.Logger,
	recorder *metrics.Recorder,
) *Engine {
	return &Engine{
		documents:  documents,
		shares:     shares,
		identities: identities,
		envelope:   envelope,
		reconciler: rec,
		log:        log,
		metrics:    recorder,
		now:        time.Now,
	}
}

// ShareWith wraps the escrowed key of hash for recipient. Only the document's
// submitter may share it.
func (e *Engine) ShareWith(ctx context.Context, hash interfaces.ContentHash, owner, recipient *interfaces.Identity) (*interfaces.ShareRecord, error) {
	log := e.log.With(
		slog.String("hash", hash.Short()),
		slog.String("owner", owner.ID.Hex()),
		slog.String("recipient", recipient.ID.Hex()))

	if owner.ID == recipient.ID {
		return nil, fmt.Errorf("%w: cannot share with self", interfaces.ErrInvalidArgument)
	}

	record, err := e.lookup(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !interfaces.SameAddress(record.SubmitterID.Hex(), owner.ID.Hex()) {
		log.Warn("Share rejected, caller is not the submitter")
		return nil, interfaces.ErrUnauthorized
	}

	key, err := e.envelope.OpenEscrow(ctx, record.EscrowedKey)
	if err != nil {
		log.Error("Failed to open escrowed key", "err", err)
		return nil, err
	}

	wrapped, err := e.envelope.Seal(ctx, kms.SharePurpose(recipient.ID.Hex()), key)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap key for recipient: %w", err)
	}

	share := &interfaces.ShareRecord{
		ID:           uuid.NewString(),
		DocumentHash: hash,
		SenderID:     owner.ID,
		RecipientID:  recipient.ID,
		WrappedKey:   wrapped,
		CreatedAt:    e.now().UTC(),
	}
	if err := e.shares.CreateShare(ctx, share); err != nil {
		return nil, err
	}

	e.metrics.ShareCreated()
	log.Info("Document shared", slog.String("share", share.ID))
	return share, nil
}

// ShareWithEmail resolves the recipient by email and shares hash with them.
func (e *Engine) ShareWithEmail(ctx context.Context, hash interfaces.ContentHash, owner *interfaces.Identity, email string) (*interfaces.ShareRecord, error) {
	recipient, err := e.identities.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("recipient %q: %w", email, interfaces.ErrNotFound)
		}
		return nil, err
	}
	return e.ShareWith(ctx, hash, owner, recipient)
}

// OpenShared unwraps the newest share of hash addressed to recipient.
func (e *Engine) OpenShared(ctx context.Context, hash interfaces.ContentHash, recipient *interfaces.Identity) (*SharedDocument, error) {
	share, err := e.shares.LatestShare(ctx, hash, recipient.ID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, interfaces.ErrShareNotFound
		}
		return nil, err
	}

	key, err := e.envelope.Open(ctx, kms.SharePurpose(recipient.ID.Hex()), share.WrappedKey)
	if err != nil {
		e.log.Error("Failed to unwrap shared key",
			"err", err,
			slog.String("share", share.ID),
			slog.String("recipient", recipient.ID.Hex()))
		return nil, err
	}

	record, err := e.lookup(ctx, hash)
	if err != nil {
		return nil, err
	}

	filename := record.OriginalName
	if filename == "" {
		filename = defaultFilename
	}

	return &SharedDocument{
		Hash:     hash,
		BlobRef:  record.BlobRef,
		Key:      key,
		Filename: filename,
	}, nil
}

// SharedWith lists the shares addressed to recipient, newest first.
func (e *Engine) SharedWith(ctx context.Context, recipient *interfaces.Identity) ([]*interfaces.ShareRecord, error) {
	return e.shares.ListSharesForRecipient(ctx, recipient.ID)
}

// lookup prefers the index row and falls back to the reconciled ledger answer
// when the index lost it.
func (e *Engine) lookup(ctx context.Context, hash interfaces.ContentHash) (*interfaces.DocumentRecord, error) {
	record, err := e.documents.GetDocument(ctx, hash)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	verification, err := e.reconciler.Verify(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !verification.Registered {
		return nil, interfaces.ErrNotFound
	}

	e.log.Info("Document missing from index, using ledger record", slog.String("hash", hash.Short()))
	return &interfaces.DocumentRecord{
		ContentHash:  hash,
		BlobRef:      verification.BlobRef,
		SubmitterID:  verification.Submitter,
		EscrowedKey:  verification.EscrowedKey,
		RegisteredAt: verification.Timestamp,
		Revoked:      verification.Revoked,
	}, nil
}
