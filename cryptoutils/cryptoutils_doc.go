// Package cryptoutils provides the symmetric primitives used to protect
// escrowed document keys and custodial signing keys.
//
// Keys are derived from a service secret with HKDF-SHA256 and a purpose
// string, so a key derived for one identity never opens data sealed for
// another. Sealed payloads have the layout
//
//	[version (1 byte)][nonce (12 bytes)][AES-256-GCM ciphertext]
package cryptoutils
