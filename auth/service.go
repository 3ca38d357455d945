package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
	"github.com/Dshubhambadola/CivicSeal/kms"
)

const DefaultTokenTTL = 24 * time.Hour

// Funder tops up freshly created wallets.
type Funder interface {
	EnsureFunded(ctx context.Context, address common.Address)
}

type Config struct {
	TokenTTL   time.Duration
	BcryptCost int
}

type Service struct {
	identities interfaces.IdentityStore
	vault      *kms.KeyVault
	funder     Funder
	cfg        Config
	log        *slog.Logger
}

func NewService(identities interfaces.IdentityStore, vault *kms.KeyVault, funder Funder, cfg Config, log *slog.Logger) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		identities: identities,
		vault:      vault,
		funder:     funder,
		cfg:        cfg,
		log:        log,
	}
}

// Register creates an identity with a new custodial signing key.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*interfaces.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", interfaces.ErrInvalidArgument)
	}

	if _, err := s.identities.GetIdentityByEmail(ctx, email); err == nil {
		return nil, interfaces.ErrIdentityExists
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	material, err := s.vault.CreateSigner(ctx)
	if err != nil {
		return nil, err
	}

	identity := &interfaces.Identity{
		ID:                  material.Address,
		Email:               email,
		DisplayName:         displayName,
		PasswordHash:        passwordHash,
		EncryptedSigningKey: material.EncryptedKey,
		PublicKey:           material.PublicKey,
		Nonce:               uuid.NewString(),
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.identities.CreateIdentity(ctx, identity); err != nil {
		return nil, err
	}

	s.log.Info("Identity registered", slog.String("identity", identity.ID.Hex()))

	if s.funder != nil {
		s.funder.EnsureFunded(ctx, identity.ID)
	}
	return identity, nil
}

// Login checks the password and returns a session token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *interfaces.Identity, error) {
	identity, err := s.identities.GetIdentityByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return "", nil, interfaces.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword(identity.PasswordHash, []byte(password)); err != nil {
		s.log.Debug("Login rejected", slog.String("identity", identity.ID.Hex()))
		return "", nil, interfaces.ErrInvalidCredentials
	}

	token, err := s.GenerateToken(ctx, identity)
	if err != nil {
		return "", nil, err
	}
	return token, identity, nil
}

// Authenticate resolves a session token to its identity.
// LookupByEmail returns the identity registered under email. Unknown emails are ErrNotFound.
func (s *Service) LookupByEmail(ctx context.Context, email string) (*interfaces.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", interfaces.ErrInvalidArgument)
	}
	identity, err := s.identities.GetIdentityByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *Service) Authenticate(ctx context.Context, token string) (*interfaces.Identity, error) {
	address, err := s.ParseToken(ctx, token)
	if err != nil {
		return nil, err
	}

	identity, err := s.identities.GetIdentity(ctx, address)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return identity, nil
}

func (s *Service) GenerateToken(ctx context.Context, identity *interfaces.Identity) (string, error) {
	key, err := s.tokenKey(ctx)
	if err != nil {
		return "", err
	}
	return GenerateToken(identity.ID, identity.Email, key, s.cfg.TokenTTL)
}

func (s *Service) ParseToken(ctx context.Context, token string) (common.Address, error) {
	key, err := s.tokenKey(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return ParseToken(token, key)
}

func (s *Service) tokenKey(ctx context.Context) ([]byte, error) {
	return s.vault.Envelope().DeriveKey(ctx, kms.PurposeSessionToken)
}
