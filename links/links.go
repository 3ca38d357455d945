package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
	"github.com/Dshubhambadola/CivicSeal/metrics"
	"github.com/Dshubhambadola/CivicSeal/reconciler"
)

const (
	outcomeResolved = "resolved"
	outcomeNotFound = "not_found"
	outcomeGone     = "gone"
)

type Manager struct {
	links      interfaces.LinkStore
	documents  interfaces.DocumentStore
	reconciler *reconciler.Reconciler
	log        *slog.Logger
	metrics    *metrics.Recorder

	now func() time.Time
}

func NewManager(
	links interfaces.LinkStore,
	documents interfaces.DocumentStore,
	rec *reconciler.Reconciler,
	log *slog.Logger,
	recorder *metrics.Recorder,
) *Manager {
	return &Manager{
		links:      links,
		documents:  documents,
		reconciler: rec,
		log:        log,
		metrics:    recorder,
		now:        time.Now,
	}
}

// CreateLink issues a link for hash. Only the submitter of the document may
// create one. A nil expiresAt means the link never expires.
func (m *Manager) CreateLink(ctx context.Context, hash interfaces.ContentHash, owner *interfaces.Identity, expiresAt *time.Time) (*interfaces.PublicLink, error) {
	now := m.now().UTC()
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: expiry %s is in the past", interfaces.ErrInvalidArgument, expiresAt.Format(time.RFC3339))
	}

	verification, err := m.reconciler.Verify(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !verification.Registered {
		return nil, interfaces.ErrNotFound
	}
	if !interfaces.SameAddress(verification.Submitter.Hex(), owner.ID.Hex()) {
		m.log.Warn("Link creation rejected, caller is not the submitter",
			slog.String("hash", hash.Short()),
			slog.String("identity", owner.ID.Hex()))
		return nil, interfaces.ErrUnauthorized
	}

	link := &interfaces.PublicLink{
		ID:           uuid.NewString(),
		DocumentHash: hash,
		CreatorID:    owner.ID,
		Enabled:      true,
		CreatedAt:    now,
	}
	if expiresAt != nil {
		expiry := expiresAt.UTC()
		link.ExpiresAt = &expiry
	}

	if err := m.links.CreateLink(ctx, link); err != nil {
		return nil, err
	}

	m.log.Info("Public link created", slog.String("hash", hash.Short()), slog.String("link", link.ID))
	return link, nil
}

// ResolveLink verifies the document behind id. Unknown links are ErrNotFound,
// disabled or expired ones are ErrGone.
func (m *Manager) ResolveLink(ctx context.Context, id string) (*interfaces.PublicVerification, error) {
	link, err := m.links.GetLink(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			m.metrics.LinkResolved(outcomeNotFound)
		}
		return nil, err
	}
	if !link.Usable(m.now()) {
		m.metrics.LinkResolved(outcomeGone)
		return nil, interfaces.ErrGone
	}

	verification, err := m.reconciler.Verify(ctx, link.DocumentHash)
	if err != nil {
		return nil, err
	}

	result := &interfaces.PublicVerification{
		Hash:           link.DocumentHash,
		BlobRef:        verification.BlobRef,
		Submitter:      verification.Submitter,
		Timestamp:      verification.Timestamp,
		Registered:     verification.Registered,
		Revoked:        verification.Revoked,
		Source:         verification.Source,
		ChainConfirmed: verification.ChainConfirmed(),
		Creator:        link.CreatorID,
		CreatedAt:      link.CreatedAt,
	}

	switch record, err := m.documents.GetDocument(ctx, link.DocumentHash); {
	case err == nil:
		result.OriginalName = record.OriginalName
		result.Revoked = result.Revoked || record.Revoked
	case !errors.Is(err, interfaces.ErrNotFound):
		m.log.Warn("Failed to read document name for link", "err", err, slog.String("link", id))
	}

	m.metrics.LinkResolved(outcomeResolved)
	return result, nil
}

// DisableLink permanently disables id. Only the creator may disable a link.
func (m *Manager) DisableLink(ctx context.Context, id string, owner *interfaces.Identity) error {
	link, err := m.links.GetLink(ctx, id)
	if err != nil {
		return err
	}
	if !interfaces.SameAddress(link.CreatorID.Hex(), owner.ID.Hex()) {
		return interfaces.ErrUnauthorized
	}
	if !link.Enabled {
		return nil
	}

	if err := m.links.DisableLink(ctx, id); err != nil {
		return err
	}
	m.log.Info("Public link disabled", slog.String("link", id))
	return nil
}

// ListLinks returns the links created by owner.
func (m *Manager) ListLinks(ctx context.Context, owner *interfaces.Identity) ([]*interfaces.PublicLink, error) {
	return m.links.ListLinksByCreator(ctx, owner.ID)
}
