package interfaces

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is a user of the service together with their custodial signing key.
// ID is the wallet address derived from the signing key and never changes.
type Identity struct {
	ID                  common.Address
	Email               string
	DisplayName         string
	PasswordHash        []byte
	EncryptedSigningKey []byte
	PublicKey           []byte
	Nonce               string
	CreatedAt           time.Time
}

// SameAddress compares two addresses given in any hex case.
func SameAddress(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	return strings.TrimPrefix(a, "0x") == strings.TrimPrefix(b, "0x")
}

// DocumentRecord is the local index row for a registered document.
type DocumentRecord struct {
	ContentHash  ContentHash
	BlobRef      string
	SubmitterID  common.Address
	EscrowedKey  *EscrowedKey
	OriginalName string
	RegisteredAt time.Time
	Revoked      bool
}

// ShareRecord grants a recipient access to a document's key. Immutable once created.
type ShareRecord struct {
	ID           string
	DocumentHash ContentHash
	SenderID     common.Address
	RecipientID  common.Address
	WrappedKey   []byte
	CreatedAt    time.Time
}

// PublicLink is an anonymous verification token bound to one document.
type PublicLink struct {
	ID           string
	DocumentHash ContentHash
	CreatorID    common.Address
	Enabled      bool
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}

// Usable reports whether the link can still be resolved at the given time.
func (l *PublicLink) Usable(now time.Time) bool {
	if !l.Enabled {
		return false
	}
	if l.ExpiresAt != nil && !now.Before(*l.ExpiresAt) {
		return false
	}
	return true
}

// VerificationSource records where a verification answer came from.
type VerificationSource string

const (
	SourceLedger VerificationSource = "ledger"
	SourceIndex  VerificationSource = "index"
	SourceNone   VerificationSource = "none"
)

// Verification is the reconciled answer for one content hash.
type Verification struct {
	Hash        ContentHash
	Registered  bool
	Revoked     bool
	Submitter   common.Address
	Timestamp   time.Time
	BlobRef     string
	EscrowedKey *EscrowedKey
	Source      VerificationSource
}

// ChainConfirmed reports whether the answer is authoritative.
func (v *Verification) ChainConfirmed() bool {
	return v.Source == SourceLedger
}

// PublicVerification is the field subset exposed through anonymous links.
type PublicVerification struct {
	Hash           ContentHash        `json:"hash"`
	OriginalName   string             `json:"originalName"`
	BlobRef        string             `json:"blobRef"`
	Submitter      common.Address     `json:"submitter"`
	Timestamp      time.Time          `json:"timestamp"`
	Registered     bool               `json:"isRegistered"`
	Revoked        bool               `json:"isRevoked"`
	Source         VerificationSource `json:"source"`
	ChainConfirmed bool               `json:"isChainValid"`
	Creator        common.Address     `json:"creator"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// LedgerRecord is the ledger's view of one content hash.
type LedgerRecord struct {
	Exists      bool
	Submitter   common.Address
	Timestamp   time.Time
	BlobRef     string
	EscrowedKey string
	Revoked     bool
}

// TxReceipt is returned by ledger writes once inclusion is confirmed.
type TxReceipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// Wei converts an ether amount expressed in milli-ether to wei.
func Wei(milliEther int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(milliEther), big.NewInt(1_000_000_000_000_000))
}
