package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

const shareColumns = `id, document_hash, sender_id, recipient_id, wrapped_key, created_at`

type ShareRepository struct {
	db DBTX
}

func NewShareRepository(db DBTX) *ShareRepository {
	return &ShareRepository{db: db}
}

func (r *ShareRepository) CreateShare(ctx context.Context, share *interfaces.ShareRecord) error {
	query :=
		`INSERT INTO shares (` + shareColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		share.ID,
		share.DocumentHash.String(),
		addressKey(share.SenderID),
		addressKey(share.RecipientID),
		share.WrappedKey,
		toMillis(share.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *ShareRepository) LatestShare(ctx context.Context, hash interfaces.ContentHash, recipient common.Address) (*interfaces.ShareRecord, error) {
	query :=
		`SELECT ` + shareColumns + ` FROM shares
		 WHERE document_hash = $1 AND recipient_id = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`

	share, err := scanShare(r.db.QueryRowContext(ctx, query, hash.String(), addressKey(recipient)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return share, nil
}

func (r *ShareRepository) ListSharesForRecipient(ctx context.Context, recipient common.Address) ([]*interfaces.ShareRecord, error) {
	query :=
		`SELECT ` + shareColumns + ` FROM shares
		 WHERE recipient_id = $1
		 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, addressKey(recipient))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	shares := []*interfaces.ShareRecord{}
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return shares, nil
}

func scanShare(row rowScanner) (*interfaces.ShareRecord, error) {
	var (
		hash      string
		sender    string
		recipient string
		createdAt int64
		share     interfaces.ShareRecord
	)

	if err := row.Scan(&share.ID, &hash, &sender, &recipient, &share.WrappedKey, &createdAt); err != nil {
		return nil, err
	}

	contentHash, err := interfaces.ParseContentHash(hash)
	if err != nil {
		return nil, fmt.Errorf("corrupt content hash %q: %w", hash, err)
	}
	share.DocumentHash = contentHash
	share.SenderID = common.HexToAddress(sender)
	share.RecipientID = common.HexToAddress(recipient)
	share.CreatedAt = fromMillis(createdAt)
	return &share, nil
}
