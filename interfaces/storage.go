package interfaces

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrBlobNotFound is returned when a blob reference does not resolve.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrBackendUnavailable is returned when the blob backend is unreachable.
	ErrBackendUnavailable = errors.New("storage backend unavailable")
	// ErrInvalidLocationURI is returned for malformed blob store URIs.
	ErrInvalidLocationURI = errors.New("invalid storage backend location URI")
)

// BlobStore stores opaque document bytes. Addressing is by the returned ref.
type BlobStore interface {
	Put(ctx context.Context, data []byte, name string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	// Delete is best-effort: callers log failures and move on.
	Delete(ctx context.Context, ref string) error
	// Available reports whether the backend can currently serve requests.
	Available(ctx context.Context) bool
	Name() string
}

type IdentityStore interface {
	CreateIdentity(ctx context.Context, identity *Identity) error
	GetIdentity(ctx context.Context, id common.Address) (*Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*Identity, error)
}

type DocumentStore interface {
	// CreateDocument inserts the record unless the hash is already indexed.
	// It reports whether a row was written.
	CreateDocument(ctx context.Context, record *DocumentRecord) (bool, error)
	GetDocument(ctx context.Context, hash ContentHash) (*DocumentRecord, error)
	ListDocumentsBySubmitter(ctx context.Context, submitter common.Address) ([]*DocumentRecord, error)
	// MarkRevoked flips the revoked flag. It never clears it.
	MarkRevoked(ctx context.Context, hash ContentHash) error
}

type ShareStore interface {
	CreateShare(ctx context.Context, share *ShareRecord) error
	// LatestShare returns the newest share of hash for recipient.
	LatestShare(ctx context.Context, hash ContentHash, recipient common.Address) (*ShareRecord, error)
	ListSharesForRecipient(ctx context.Context, recipient common.Address) ([]*ShareRecord, error)
}

type LinkStore interface {
	CreateLink(ctx context.Context, link *PublicLink) error
	GetLink(ctx context.Context, id string) (*PublicLink, error)
	DisableLink(ctx context.Context, id string) error
	ListLinksByCreator(ctx context.Context, creator common.Address) ([]*PublicLink, error)
}
