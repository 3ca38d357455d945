package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

const identityColumns = `id, email, display_name, password_hash, encrypted_signing_key, public_key, nonce, created_at`

type IdentityRepository struct {
	db DBTX
}

func NewIdentityRepository(db DBTX) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// CreateIdentity inserts a new identity. A clash on address or email yields
// interfaces.ErrIdentityExists.
func (r *IdentityRepository) CreateIdentity(ctx context.Context, identity *interfaces.Identity) error {
	query :=
		`INSERT INTO identities (` + identityColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		addressKey(identity.ID),
		nullString(strings.ToLower(identity.Email)),
		identity.DisplayName,
		identity.PasswordHash,
		identity.EncryptedSigningKey,
		identity.PublicKey,
		identity.Nonce,
		toMillis(identity.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return interfaces.ErrIdentityExists
	}
	return nil
}

func (r *IdentityRepository) GetIdentity(ctx context.Context, id common.Address) (*interfaces.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, query, addressKey(id)))
}

func (r *IdentityRepository) GetIdentityByEmail(ctx context.Context, email string) (*interfaces.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

func scanIdentity(row rowScanner) (*interfaces.Identity, error) {
	var (
		id        string
		email     sql.NullString
		createdAt int64
		identity  interfaces.Identity
	)

	err := row.Scan(&id, &email, &identity.DisplayName, &identity.PasswordHash,
		&identity.EncryptedSigningKey, &identity.PublicKey, &identity.Nonce, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	identity.ID = common.HexToAddress(id)
	identity.Email = email.String
	identity.CreatedAt = fromMillis(createdAt)
	return &identity, nil
}
