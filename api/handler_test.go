package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dshubhambadola/CivicSeal/auth"
	"github.com/Dshubhambadola/CivicSeal/index"
	"github.com/Dshubhambadola/CivicSeal/interfaces"
	"github.com/Dshubhambadola/CivicSeal/kms"
	"github.com/Dshubhambadola/CivicSeal/ledger"
	"github.com/Dshubhambadola/CivicSeal/links"
	"github.com/Dshubhambadola/CivicSeal/reconciler"
	"github.com/Dshubhambadola/CivicSeal/registry"
	"github.com/Dshubhambadola/CivicSeal/sharing"
	"github.com/Dshubhambadola/CivicSeal/signing"
	"github.com/Dshubhambadola/CivicSeal/storage"
)

type testAPI struct {
	mux    http.Handler
	ledger *ledger.MemoryLedger
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	idx, err := index.Open(ctx, "sqlite::memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	blobs, err := storage.NewBadgerBackend("", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	secret, err := kms.NewStaticSecret(bytes.Repeat([]byte{0x33}, 32))
	require.NoError(t, err)
	envelope := kms.NewEnvelope(secret)
	vault := kms.NewKeyVault(envelope)

	l := ledger.NewMemoryLedger()
	rec := reconciler.NewLedgerFirst(l, idx.Documents(), log)
	signers := signing.NewAdapter(vault, l, signing.NoopFunding{}, signing.Config{}, log, nil)

	reg := registry.New(l, idx.Documents(), blobs, signers, envelope, rec, registry.Config{}, log, nil)
	t.Cleanup(reg.Close)

	authSvc := auth.NewService(idx.Identities(), vault, signers, auth.Config{BcryptCost: bcrypt.MinCost}, log)
	engine := sharing.NewEngine(idx.Documents(), idx.Shares(), idx.Identities(), envelope, rec, log, nil)
	manager := links.NewManager(idx.Links(), idx.Documents(), rec, log, nil)

	handler := NewHandler(authSvc, reg, engine, manager, HandlerConfig{PublicURL: "https://civicseal.test/"}, log)
	mux := chi.NewRouter()
	handler.RegisterRoutes(mux)

	return &testAPI{mux: mux, ledger: l}
}

func (a *testAPI) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, req)
	return w
}

func (a *testAPI) doJSON(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return a.do(t, req, token)
}

func (a *testAPI) upload(t *testing.T, path string, content []byte, fields map[string]string, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "report final.pdf")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return a.do(t, req, token)
}

func (a *testAPI) signup(t *testing.T, email string) string {
	t.Helper()
	w := a.doJSON(t, http.MethodPost, "/api/auth/register", RegisterIdentityRequest{Email: email, Password: "pw-" + email}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.doJSON(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: "pw-" + email}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestDocumentLifecycle(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice@example.com")
	bob := api.signup(t, "bob@example.com")
	content := []byte("hello-doc")
	hash := interfaces.Identify(content)

	w := api.upload(t, "/api/documents", content, map[string]string{"encryptionKey": "k-123"}, alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	registered := decode[RegisterDocumentResponse](t, w)
	assert.False(t, registered.AlreadyRegistered)
	assert.NotEmpty(t, registered.TxHash)
	assert.Equal(t, hash, registered.Document.Hash)
	assert.Equal(t, "report final.pdf", registered.Document.OriginalName)
	assert.True(t, registered.Document.HasKey)

	w = api.upload(t, "/api/documents", content, nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	again := decode[RegisterDocumentResponse](t, w)
	assert.True(t, again.AlreadyRegistered)
	assert.Equal(t, registered.Document.Submitter, again.Document.Submitter)

	w = api.upload(t, "/api/documents/verify", content, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	verified := decode[VerifyResponse](t, w)
	assert.True(t, verified.Registered)
	assert.True(t, verified.ChainConfirmed)
	assert.Equal(t, interfaces.SourceLedger, verified.Source)

	w = api.doJSON(t, http.MethodGet, "/api/documents/"+hash.String()+"/key", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "k-123", decode[KeyResponse](t, w).Key)

	w = api.doJSON(t, http.MethodGet, "/api/documents/"+hash.String()+"/key", nil, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.doJSON(t, http.MethodGet, "/api/documents", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ListDocumentsResponse](t, w).Documents, 1)

	w = api.doJSON(t, http.MethodPost, "/api/documents/revoke", HashRequest{Hash: hash.String()}, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.upload(t, "/api/documents/revoke", content, nil, alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[RevokeResponse](t, w).Document.Revoked)

	w = api.doJSON(t, http.MethodPost, "/api/documents/revoke", HashRequest{Hash: hash.String()}, alice)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.upload(t, "/api/documents/verify", content, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isRevoked":true`)
	assert.True(t, decode[VerifyResponse](t, w).Revoked)
}

func TestVerify_RequiresFile(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice@example.com")
	content := []byte("private contract body")
	hash := interfaces.Identify(content).String()

	w := api.upload(t, "/api/documents", content, nil, alice)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.doJSON(t, http.MethodPost, "/api/documents/verify", HashRequest{Hash: hash}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "submitter")
	assert.NotContains(t, w.Body.String(), "ipfsHash")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("hash", hash))
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/documents/verify", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w = api.do(t, req, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.upload(t, "/api/documents/verify", []byte("never registered"), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	unknown := decode[VerifyResponse](t, w)
	assert.False(t, unknown.Registered)
	assert.Nil(t, unknown.Submitter)
	assert.Empty(t, unknown.BlobRef)
}

func TestIdentityLookup(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice@example.com")
	api.signup(t, "bob@example.com")

	w := api.doJSON(t, http.MethodGet, "/api/identities/bob@example.com", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.doJSON(t, http.MethodGet, "/api/identities/Bob@Example.com", nil, alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	bob := decode[IdentityResponse](t, w)
	assert.Equal(t, "bob@example.com", bob.Email)
	assert.NotEmpty(t, bob.PublicKey)
	assert.NotEqual(t, common.Address{}, bob.Address)
	assert.NotContains(t, w.Body.String(), "password")

	w = api.doJSON(t, http.MethodGet, "/api/identities/nobody@example.com", nil, alice)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerify_LedgerUnavailableFallsBackToIndex(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice@example.com")
	content := []byte("fallback")

	w := api.upload(t, "/api/documents", content, nil, alice)
	require.Equal(t, http.StatusOK, w.Code)

	api.ledger.SetUnavailable(true)
	w = api.upload(t, "/api/documents/verify", content, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	verified := decode[VerifyResponse](t, w)
	assert.True(t, verified.Registered)
	assert.False(t, verified.ChainConfirmed)
	assert.Equal(t, interfaces.SourceIndex, verified.Source)

	w = api.upload(t, "/api/documents", []byte("new while down"), nil, alice)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSharing(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice@example.com")
	bob := api.signup(t, "bob@example.com")
	carol := api.signup(t, "carol@example.com")
	content := []byte("shared contract")
	hash := interfaces.Identify(content).String()

	w := api.upload(t, "/api/documents", content, map[string]string{"encryptionKey": "file-key", "originalName": "contract.pdf"}, alice)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.doJSON(t, http.MethodPost, "/api/documents/"+hash+"/share", ShareRequest{RecipientEmail: "bob@example.com"}, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.doJSON(t, http.MethodPost, "/api/documents/"+hash+"/share", ShareRequest{RecipientEmail: "nobody@example.com"}, alice)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.doJSON(t, http.MethodPost, "/api/documents/"+hash+"/share", ShareRequest{RecipientEmail: "bob@example.com"}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.doJSON(t, http.MethodGet, "/api/shared", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ListSharesResponse](t, w).Shares, 1)

	w = api.doJSON(t, http.MethodGet, "/api/shared/"+hash, nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	opened := decode[OpenSharedResponse](t, w)
	assert.Equal(t, "file-key", opened.FileKey)
	assert.Equal(t, "contract.pdf", opened.Filename)

	w = api.doJSON(t, http.MethodGet, "/api/shared/"+hash, nil, carol)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublicLinks(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice@example.com")
	bob := api.signup(t, "bob@example.com")
	content := []byte("public deed")
	hash := interfaces.Identify(content).String()

	w := api.upload(t, "/api/documents", content, map[string]string{"encryptionKey": "never-public"}, alice)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.doJSON(t, http.MethodPost, "/api/documents/"+hash+"/links", nil, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.doJSON(t, http.MethodPost, "/api/documents/"+hash+"/links", nil, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	link := decode[LinkResponse](t, w)
	assert.Equal(t, "https://civicseal.test/verify/"+link.ID, link.URL)

	w = api.doJSON(t, http.MethodGet, "/api/public/links/"+link.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "never-public")
	resolved := decode[PublicLinkResponse](t, w)
	assert.True(t, resolved.Document.Registered)
	assert.Equal(t, "report final.pdf", resolved.Document.OriginalName)

	w = api.doJSON(t, http.MethodGet, "/api/links", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ListLinksResponse](t, w).Links, 1)

	w = api.doJSON(t, http.MethodDelete, "/api/links/"+link.ID, nil, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.doJSON(t, http.MethodDelete, "/api/links/"+link.ID, nil, alice)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.doJSON(t, http.MethodGet, "/api/public/links/"+link.ID, nil, "")
	assert.Equal(t, http.StatusGone, w.Code)

	w = api.doJSON(t, http.MethodGet, "/api/public/links/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthentication(t *testing.T) {
	api := newTestAPI(t)

	w := api.doJSON(t, http.MethodGet, "/api/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.doJSON(t, http.MethodGet, "/api/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := api.signup(t, "dave@example.com")
	w = api.doJSON(t, http.MethodGet, "/api/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[IdentityResponse](t, w)
	assert.Equal(t, "dave@example.com", me.Email)
	assert.NotEmpty(t, me.PublicKey)

	w = api.doJSON(t, http.MethodPost, "/api/auth/register", RegisterIdentityRequest{Email: "dave@example.com", Password: "x"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.doJSON(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "dave@example.com", Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.doJSON(t, http.MethodPost, "/api/documents/verify", HashRequest{Hash: "zz"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{interfaces.ErrInvalidArgument, http.StatusBadRequest},
		{interfaces.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{interfaces.ErrUnauthorized, http.StatusForbidden},
		{interfaces.ErrNotFound, http.StatusNotFound},
		{interfaces.ErrShareNotFound, http.StatusNotFound},
		{interfaces.ErrGone, http.StatusGone},
		{interfaces.ErrAlreadyRevoked, http.StatusConflict},
		{interfaces.ErrIdentityExists, http.StatusConflict},
		{interfaces.ErrLedgerUnavailable, http.StatusServiceUnavailable},
		{interfaces.ErrNoEscrowKey, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", interfaces.ErrGone), http.StatusGone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, statusFor(tc.err), tc.err.Error())
	}
}
