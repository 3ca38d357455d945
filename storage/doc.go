// Package storage provides the blob stores holding document bytes.
//
// Documents are opaque to the service: the content hash is registered on the
// ledger while the bytes (usually encrypted by the client) live in one of the
// backends below. Each backend hands out its own reference string on Put and
// resolves it on Get:
//
//   - IPFS: the CID returned by the node; Delete unpins it
//   - S3 and S3-compatible stores: the object key
//   - local file system: a UUID file name under the base directory
//   - Badger: a UUID key in an embedded key-value store
//
// # Storage URI Format
//
// Backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - ipfs://127.0.0.1:5001/?timeout=30s
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix/?region=us-west-2&endpoint=http://minio:9000
//   - file:///var/lib/civicseal/blobs
//   - badger:///var/lib/civicseal/badger (badger://memory for an in-memory store)
//
// When several URIs are configured the factory wraps them in a MultiBlobStore,
// which writes to the first available backend and prefixes the returned
// reference with that backend's name so reads and deletes can be routed.
//
// # Errors
//
// Missing references surface as interfaces.ErrBlobNotFound and unreachable
// backends as interfaces.ErrBackendUnavailable.
package storage
