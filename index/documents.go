package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

const documentColumns = `content_hash, blob_ref, submitter_id, escrow_key, original_name, registered_at, revoked`

type DocumentRepository struct {
	db DBTX
}

func NewDocumentRepository(db DBTX) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateDocument inserts the record keyed by content hash. An already indexed
// hash is left untouched and reported as not written.
func (r *DocumentRepository) CreateDocument(ctx context.Context, record *interfaces.DocumentRecord) (bool, error) {
	query :=
		`INSERT INTO documents (` + documentColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (content_hash) DO NOTHING`

	var escrow sql.NullString
	if record.EscrowedKey != nil {
		escrow = sql.NullString{String: record.EscrowedKey.Encode(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query,
		record.ContentHash.String(),
		record.BlobRef,
		addressKey(record.SubmitterID),
		escrow,
		record.OriginalName,
		toMillis(record.RegisteredAt),
		record.Revoked,
	)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *DocumentRepository) GetDocument(ctx context.Context, hash interfaces.ContentHash) (*interfaces.DocumentRecord, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE content_hash = $1`

	record, err := scanDocument(r.db.QueryRowContext(ctx, query, hash.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return record, nil
}

// ListDocumentsBySubmitter returns the submitter's documents, newest first.
func (r *DocumentRepository) ListDocumentsBySubmitter(ctx context.Context, submitter common.Address) ([]*interfaces.DocumentRecord, error) {
	query :=
		`SELECT ` + documentColumns + ` FROM documents
		 WHERE submitter_id = $1
		 ORDER BY registered_at DESC, content_hash`

	rows, err := r.db.QueryContext(ctx, query, addressKey(submitter))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	records := []*interfaces.DocumentRecord{}
	for rows.Next() {
		record, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return records, nil
}

// MarkRevoked sets the revoked flag. Revoking twice is a no-op.
func (r *DocumentRepository) MarkRevoked(ctx context.Context, hash interfaces.ContentHash) error {
	query := `UPDATE documents SET revoked = $1 WHERE content_hash = $2`

	res, err := r.db.ExecContext(ctx, query, true, hash.String())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func scanDocument(row rowScanner) (*interfaces.DocumentRecord, error) {
	var (
		hash         string
		submitter    string
		escrow       sql.NullString
		registeredAt int64
		record       interfaces.DocumentRecord
	)

	if err := row.Scan(&hash, &record.BlobRef, &submitter, &escrow,
		&record.OriginalName, &registeredAt, &record.Revoked); err != nil {
		return nil, err
	}

	contentHash, err := interfaces.ParseContentHash(hash)
	if err != nil {
		return nil, fmt.Errorf("corrupt content hash %q: %w", hash, err)
	}
	record.ContentHash = contentHash
	record.SubmitterID = common.HexToAddress(submitter)
	record.RegisteredAt = fromMillis(registeredAt)

	if escrow.Valid {
		key, err := interfaces.DecodeEscrowedKey(escrow.String)
		if err != nil {
			return nil, err
		}
		record.EscrowedKey = key
	}
	return &record, nil
}
