// Package ledger provides clients for the authoritative document ledger.
//
// OnchainLedgerClient talks to a DocumentRegistry contract over an Ethereum
// JSON-RPC endpoint. Writes are sent as transactions and block until they are
// mined; every call is bounded by the configured timeout. Reverts are mapped to
// the sentinel errors in the interfaces package, and an unreachable node or a
// missing contract (for example after a development chain reset) is reported
// as interfaces.ErrLedgerUnavailable.
//
// MemoryLedger is an in-process implementation enforcing the same rules. It is
// used for local development and for tests, and can simulate outages and chain
// resets. MockLedger is a testify mock.
package ledger
