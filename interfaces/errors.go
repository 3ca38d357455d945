package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned when the ledger already holds a content hash.
	ErrDuplicate = errors.New("document already registered")
	// ErrLedgerUnavailable is returned when the ledger cannot be reached in time.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrUnauthorized is returned when an identity may not act on a document.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrKeyRecovery is returned when sealed key material cannot be recovered.
	ErrKeyRecovery = errors.New("key recovery failed")
	// ErrShareNotFound is returned when no share matches a document and recipient.
	ErrShareNotFound = errors.New("share not found")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrGone is returned for disabled or expired public links.
	ErrGone = errors.New("gone")

	ErrAlreadyRevoked     = errors.New("document already revoked")
	ErrNotRegistered      = errors.New("document not registered")
	ErrIdentityExists     = errors.New("identity already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidArgument    = errors.New("invalid argument")
)

// ErrNoEscrowKey is returned when a document was registered without key material.
var ErrNoEscrowKey = fmt.Errorf("%w: document has no escrowed key", ErrKeyRecovery)
