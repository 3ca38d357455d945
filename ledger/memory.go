package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

// MemoryLedger is an in-memory interfaces.Ledger. It enforces hash uniqueness
// and submitter-only revocation the same way the contract does.
type MemoryLedger struct {
	mu          sync.RWMutex
	records     map[interfaces.ContentHash]*interfaces.LedgerRecord
	balances    map[common.Address]*big.Int
	unavailable bool
	writes      int
	block       uint64
	now         func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records:  make(map[interfaces.ContentHash]*interfaces.LedgerRecord),
		balances: make(map[common.Address]*big.Int),
		now:      time.Now,
	}
}

// SetUnavailable makes every call fail with ErrLedgerUnavailable.
func (m *MemoryLedger) SetUnavailable(unavailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = unavailable
}

// Reset drops all records, as a development chain reset would.
func (m *MemoryLedger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[interfaces.ContentHash]*interfaces.LedgerRecord)
}

// SetBalance sets the balance of address.
func (m *MemoryLedger) SetBalance(address common.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[address] = new(big.Int).Set(amount)
}

// Writes returns the number of state-changing transactions accepted so far.
func (m *MemoryLedger) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MemoryLedger) Register(ctx context.Context, hash interfaces.ContentHash, blobRef string, escrowedKey string, signer interfaces.Signer) (*interfaces.TxReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return nil, fmt.Errorf("%w: register", interfaces.ErrLedgerUnavailable)
	}
	if _, exists := m.records[hash]; exists {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrDuplicate, hash)
	}
	if escrowedKey == "" {
		escrowedKey = interfaces.NoEscrowKey
	}

	m.records[hash] = &interfaces.LedgerRecord{
		Exists:      true,
		Submitter:   signer.Address(),
		Timestamp:   m.now().UTC().Truncate(time.Second),
		BlobRef:     blobRef,
		EscrowedKey: escrowedKey,
	}
	return m.commit(hash.Bytes(), signer.Address()), nil
}

func (m *MemoryLedger) Lookup(ctx context.Context, hash interfaces.ContentHash) (*interfaces.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.unavailable {
		return nil, fmt.Errorf("%w: lookup", interfaces.ErrLedgerUnavailable)
	}

	record, exists := m.records[hash]
	if !exists {
		return &interfaces.LedgerRecord{Exists: false}, nil
	}
	copied := *record
	return &copied, nil
}

func (m *MemoryLedger) Revoke(ctx context.Context, hash interfaces.ContentHash, signer interfaces.Signer) (*interfaces.TxReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return nil, fmt.Errorf("%w: revoke", interfaces.ErrLedgerUnavailable)
	}

	record, exists := m.records[hash]
	switch {
	case !exists:
		return nil, fmt.Errorf("%w: %s", interfaces.ErrNotRegistered, hash)
	case record.Submitter != signer.Address():
		return nil, fmt.Errorf("%w: %s is not the submitter of %s", interfaces.ErrUnauthorized, signer.Address().Hex(), hash)
	case record.Revoked:
		return nil, fmt.Errorf("%w: %s", interfaces.ErrAlreadyRevoked, hash)
	}

	record.Revoked = true
	return m.commit(hash.Bytes(), signer.Address()), nil
}

func (m *MemoryLedger) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.unavailable {
		return nil, fmt.Errorf("%w: balance", interfaces.ErrLedgerUnavailable)
	}
	if balance, ok := m.balances[address]; ok {
		return new(big.Int).Set(balance), nil
	}
	return new(big.Int), nil
}

func (m *MemoryLedger) Fund(ctx context.Context, address common.Address, amount *big.Int, funder interfaces.Signer) (*interfaces.TxReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return nil, fmt.Errorf("%w: fund", interfaces.ErrLedgerUnavailable)
	}

	if funderBalance, ok := m.balances[funder.Address()]; ok {
		if funderBalance.Cmp(amount) < 0 {
			return nil, fmt.Errorf("%w: insufficient funds for transfer", ErrTxFailed)
		}
		funderBalance.Sub(funderBalance, amount)
	}

	balance, ok := m.balances[address]
	if !ok {
		balance = new(big.Int)
		m.balances[address] = balance
	}
	balance.Add(balance, amount)

	return m.commit(address.Bytes(), funder.Address()), nil
}

// commit advances the block height and builds a receipt. Callers hold mu.
func (m *MemoryLedger) commit(subject []byte, from common.Address) *interfaces.TxReceipt {
	m.writes++
	m.block++

	var height [8]byte
	binary.BigEndian.PutUint64(height[:], m.block)

	return &interfaces.TxReceipt{
		TxHash:      crypto.Keccak256Hash(subject, from.Bytes(), height[:]),
		BlockNumber: m.block,
		GasUsed:     transferGas,
	}
}
