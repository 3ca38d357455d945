// Package kms holds the custodial key vault and the service-wide secret.
//
// KeyVault generates per-user secp256k1 signing keys and keeps them sealed under
// the service secret. Envelope performs the sealing: every purpose ("signing-key",
// "escrow", "share:<address>") gets its own AES-256-GCM key derived from the
// service secret with HKDF, so material sealed for one purpose never opens under
// another.
//
// The service secret itself comes from a SecretSource:
//
//   - StaticSecret: a secret supplied through configuration
//   - VaultSecret: a secret read from a HashiCorp Vault KV v2 mount
//   - ShamirSecret: a secret reconstructed from a threshold of Shamir shares
//     submitted by administrators
//
// Rotating the service secret invalidates every sealed signing key, escrowed
// document key and share.
package kms
