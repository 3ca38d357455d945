// Package registry orchestrates document registration and revocation.
//
// Registration computes the content hash, returns the existing record when
// either store already knows the hash, uploads the bytes, writes the ledger
// and finally indexes the record. The ledger is the arbiter of races: a
// duplicate rejection is resolved by returning the winner's record. Nothing
// is indexed unless the ledger confirmed the write.
//
// Revocation goes to the ledger first and flips the index flag second. Blob
// removal happens afterwards in the background and never fails the request.
package registry
