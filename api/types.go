package api

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

type RegisterIdentityRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type HashRequest struct {
	Hash string `json:"hash"`
}

type ShareRequest struct {
	RecipientEmail string `json:"recipientEmail"`
}

type CreateLinkRequest struct {
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type IdentityResponse struct {
	Address   common.Address `json:"address"`
	Email     string         `json:"email"`
	Name      string         `json:"name,omitempty"`
	PublicKey string         `json:"publicKey,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type LoginResponse struct {
	Success bool             `json:"success"`
	Token   string           `json:"token"`
	User    IdentityResponse `json:"user"`
}

type DocumentResponse struct {
	Hash         interfaces.ContentHash `json:"hash"`
	BlobRef      string                 `json:"ipfsHash"`
	Submitter    common.Address         `json:"submitter"`
	OriginalName string                 `json:"originalName,omitempty"`
	RegisteredAt time.Time              `json:"registeredAt"`
	Revoked      bool                   `json:"revoked"`
	HasKey       bool                   `json:"hasKey"`
}

type RegisterDocumentResponse struct {
	Success           bool             `json:"success"`
	AlreadyRegistered bool             `json:"alreadyRegistered"`
	TxHash            string           `json:"txHash,omitempty"`
	Document          DocumentResponse `json:"document"`
}

type RevokeResponse struct {
	Success  bool             `json:"success"`
	Document DocumentResponse `json:"document"`
}

type ListDocumentsResponse struct {
	Success   bool               `json:"success"`
	Documents []DocumentResponse `json:"documents"`
}

type VerifyResponse struct {
	Hash           interfaces.ContentHash        `json:"hash"`
	Registered     bool                          `json:"isRegistered"`
	Revoked        bool                          `json:"isRevoked"`
	Submitter      *common.Address               `json:"submitter,omitempty"`
	Timestamp      *time.Time                    `json:"timestamp,omitempty"`
	BlobRef        string                        `json:"ipfsHash,omitempty"`
	Source         interfaces.VerificationSource `json:"source"`
	ChainConfirmed bool                          `json:"isChainValid"`
}

type KeyResponse struct {
	Success bool                   `json:"success"`
	Hash    interfaces.ContentHash `json:"hash"`
	Key     string                 `json:"key"`
}

type ShareResponse struct {
	Success bool        `json:"success"`
	Share   ShareDetail `json:"share"`
}

type ShareDetail struct {
	ID           string                 `json:"id"`
	DocumentHash interfaces.ContentHash `json:"documentHash"`
	Sender       common.Address         `json:"sender"`
	Recipient    common.Address         `json:"recipient"`
	CreatedAt    time.Time              `json:"createdAt"`
}

type ListSharesResponse struct {
	Success bool          `json:"success"`
	Shares  []ShareDetail `json:"shares"`
}

type OpenSharedResponse struct {
	Success  bool                   `json:"success"`
	Hash     interfaces.ContentHash `json:"hash"`
	BlobRef  string                 `json:"ipfsHash"`
	FileKey  string                 `json:"fileKey"`
	Filename string                 `json:"filename"`
}

type LinkResponse struct {
	ID           string                 `json:"linkId"`
	DocumentHash interfaces.ContentHash `json:"documentHash"`
	Enabled      bool                   `json:"enabled"`
	ExpiresAt    *time.Time             `json:"expiresAt,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	URL          string                 `json:"fullUrl,omitempty"`
}

type ListLinksResponse struct {
	Success bool           `json:"success"`
	Links   []LinkResponse `json:"links"`
}

type PublicLinkResponse struct {
	Success  bool                           `json:"success"`
	Document *interfaces.PublicVerification `json:"document"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func documentResponse(record *interfaces.DocumentRecord) DocumentResponse {
	return DocumentResponse{
		Hash:         record.ContentHash,
		BlobRef:      record.BlobRef,
		Submitter:    record.SubmitterID,
		OriginalName: record.OriginalName,
		RegisteredAt: record.RegisteredAt,
		Revoked:      record.Revoked,
		HasKey:       record.EscrowedKey != nil,
	}
}

func shareDetail(share *interfaces.ShareRecord) ShareDetail {
	return ShareDetail{
		ID:           share.ID,
		DocumentHash: share.DocumentHash,
		Sender:       share.SenderID,
		Recipient:    share.RecipientID,
		CreatedAt:    share.CreatedAt,
	}
}

func verifyResponse(v *interfaces.Verification) VerifyResponse {
	resp := VerifyResponse{
		Hash:           v.Hash,
		Registered:     v.Registered,
		Revoked:        v.Revoked,
		BlobRef:        v.BlobRef,
		Source:         v.Source,
		ChainConfirmed: v.ChainConfirmed(),
	}
	if v.Registered {
		submitter, timestamp := v.Submitter, v.Timestamp
		resp.Submitter = &submitter
		resp.Timestamp = &timestamp
	}
	return resp
}
