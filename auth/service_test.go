package auth

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dshubhambadola/CivicSeal/index"
	"github.com/Dshubhambadola/CivicSeal/interfaces"
	"github.com/Dshubhambadola/CivicSeal/kms"
)

type recordingFunder struct {
	funded []common.Address
}

func (f *recordingFunder) EnsureFunded(ctx context.Context, address common.Address) {
	f.funded = append(f.funded, address)
}

func newTestService(t *testing.T) (*Service, *kms.KeyVault, *recordingFunder) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	idx, err := index.Open(context.Background(), "sqlite::memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	secret, err := kms.NewStaticSecret(bytes.Repeat([]byte{0x5a}, 32))
	require.NoError(t, err)
	vault := kms.NewKeyVault(kms.NewEnvelope(secret))

	funder := &recordingFunder{}
	svc := NewService(idx.Identities(), vault, funder, Config{BcryptCost: bcrypt.MinCost}, log)
	return svc, vault, funder
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, vault, funder := newTestService(t)

	identity, err := svc.Register(ctx, " Alice@Example.com ", "hunter22", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.NotEqual(t, []byte("hunter22"), identity.PasswordHash)
	assert.Equal(t, []common.Address{identity.ID}, funder.funded)

	// the custodial key must resolve back to the identity's address
	signer, err := vault.ResolveSigner(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, signer.Address())

	token, loggedIn, err := svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, loggedIn.ID)

	authenticated, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, authenticated.ID)
	assert.Equal(t, "Alice", authenticated.DisplayName)
}

func TestRegister_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Register(ctx, "bob@example.com", "pw", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "BOB@example.com", "other", "")
	require.ErrorIs(t, err, interfaces.ErrIdentityExists)

	_, err = svc.Register(ctx, "", "pw", "")
	require.ErrorIs(t, err, interfaces.ErrInvalidArgument)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Register(ctx, "carol@example.com", "right", "")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "carol@example.com", "wrong")
	require.ErrorIs(t, err, interfaces.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "right")
	require.ErrorIs(t, err, interfaces.ErrInvalidCredentials)
}

func TestAuthenticate_UnknownIdentity(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	token, err := svc.GenerateToken(ctx, &interfaces.Identity{ID: testAddress})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLookupByEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	identity, err := svc.Register(ctx, "carol@example.com", "pw", "")
	require.NoError(t, err)

	found, err := svc.LookupByEmail(ctx, " CAROL@example.com")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, found.ID)

	_, err = svc.LookupByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = svc.LookupByEmail(ctx, "  ")
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
}
