package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

const linkColumns = `id, document_hash, creator_id, enabled, expires_at, created_at`

type LinkRepository struct {
	db DBTX
}

func NewLinkRepository(db DBTX) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) CreateLink(ctx context.Context, link *interfaces.PublicLink) error {
	query :=
		`INSERT INTO public_links (` + linkColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		link.ID,
		link.DocumentHash.String(),
		addressKey(link.CreatorID),
		link.Enabled,
		nullMillis(link.ExpiresAt),
		toMillis(link.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *LinkRepository) GetLink(ctx context.Context, id string) (*interfaces.PublicLink, error) {
	query := `SELECT ` + linkColumns + ` FROM public_links WHERE id = $1`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

// DisableLink clears the enabled flag. Links are never deleted.
func (r *LinkRepository) DisableLink(ctx context.Context, id string) error {
	query := `UPDATE public_links SET enabled = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, false, id)
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

func (r *LinkRepository) ListLinksByCreator(ctx context.Context, creator common.Address) ([]*interfaces.PublicLink, error) {
	query :=
		`SELECT ` + linkColumns + ` FROM public_links
		 WHERE creator_id = $1
		 ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, addressKey(creator))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	links := []*interfaces.PublicLink{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return links, nil
}

func scanLink(row rowScanner) (*interfaces.PublicLink, error) {
	var (
		hash      string
		creator   string
		expiresAt sql.NullInt64
		createdAt int64
		link      interfaces.PublicLink
	)

	if err := row.Scan(&link.ID, &hash, &creator, &link.Enabled, &expiresAt, &createdAt); err != nil {
		return nil, err
	}

	contentHash, err := interfaces.ParseContentHash(hash)
	if err != nil {
		return nil, fmt.Errorf("corrupt content hash %q: %w", hash, err)
	}
	link.DocumentHash = contentHash
	link.CreatorID = common.HexToAddress(creator)
	link.CreatedAt = fromMillis(createdAt)
	if expiresAt.Valid {
		t := fromMillis(expiresAt.Int64)
		link.ExpiresAt = &t
	}
	return &link, nil
}

var (
	_ interfaces.IdentityStore = (*IdentityRepository)(nil)
	_ interfaces.DocumentStore = (*DocumentRepository)(nil)
	_ interfaces.ShareStore    = (*ShareRepository)(nil)
	_ interfaces.LinkStore     = (*LinkRepository)(nil)
)
