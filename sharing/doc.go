// Package sharing re-wraps escrowed document keys for other identities.
//
// A share holds the document key sealed under an envelope purpose bound to the
// recipient's address, so only the service acting for that recipient can open
// it. Shares are append-only; the newest share for a (document, recipient)
// pair wins.
package sharing
