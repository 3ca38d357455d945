// Package interfaces defines the core types and collaborator contracts of the
// document notarization service, separating interface definitions from
// implementations.
//
// # Content addressing
//
// ContentHash is the SHA-256 digest of a document, rendered as 0x-prefixed hex.
// Identify computes it. The hash is the primary key in both the ledger and the
// local index.
//
// # Collaborators
//
// Ledger: authoritative, append-only registration and revocation of content
// hashes, plus balance and funding of custodial wallets.
//
// BlobStore: opaque byte storage addressed by a reference it returns.
//
// SecretSource: provides the service-wide secret used for envelope encryption.
//
// FundingSource: tops up custodial wallets so they can pay for ledger writes.
//
// # Stores
//
// IdentityStore, DocumentStore, ShareStore and LinkStore are implemented by the
// relational index.
//
// # Errors
//
// The sentinel errors in errors.go form the error taxonomy shared by all
// components. Callers classify failures with errors.Is.
package interfaces
