package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
	"github.com/Dshubhambadola/CivicSeal/registry"
	"github.com/Dshubhambadola/CivicSeal/sharing"
)

const DefaultMaxUploadBytes = 32 << 20

type Authenticator interface {
	Register(ctx context.Context, email, password, displayName string) (*interfaces.Identity, error)
	Login(ctx context.Context, email, password string) (string, *interfaces.Identity, error)
	Authenticate(ctx context.Context, token string) (*interfaces.Identity, error)
	LookupByEmail(ctx context.Context, email string) (*interfaces.Identity, error)
}

type DocumentRegistry interface {
	RegisterDocument(ctx context.Context, identity *interfaces.Identity, req registry.RegisterRequest) (*registry.RegisterResult, error)
	RevokeDocument(ctx context.Context, identity *interfaces.Identity, hash interfaces.ContentHash) (*interfaces.DocumentRecord, error)
	Verify(ctx context.Context, hash interfaces.ContentHash) (*interfaces.Verification, error)
	ListDocuments(ctx context.Context, identity *interfaces.Identity) ([]*interfaces.DocumentRecord, error)
	RecoverKey(ctx context.Context, identity *interfaces.Identity, hash interfaces.ContentHash) ([]byte, error)
}

type SharingEngine interface {
	ShareWithEmail(ctx context.Context, hash interfaces.ContentHash, owner *interfaces.Identity, email string) (*interfaces.ShareRecord, error)
	OpenShared(ctx context.Context, hash interfaces.ContentHash, recipient *interfaces.Identity) (*sharing.SharedDocument, error)
	SharedWith(ctx context.Context, recipient *interfaces.Identity) ([]*interfaces.ShareRecord, error)
}

type LinkManager interface {
	CreateLink(ctx context.Context, hash interfaces.ContentHash, owner *interfaces.Identity, expiresAt *time.Time) (*interfaces.PublicLink, error)
	ResolveLink(ctx context.Context, id string) (*interfaces.PublicVerification, error)
	DisableLink(ctx context.Context, id string, owner *interfaces.Identity) error
	ListLinks(ctx context.Context, owner *interfaces.Identity) ([]*interfaces.PublicLink, error)
}

type HandlerConfig struct {
	// PublicURL prefixes public link URLs returned to clients, e.g. https://civicseal.example.
	PublicURL      string
	MaxUploadBytes int64
}

// Handler serves the document, sharing and link API.
type Handler struct {
	auth     Authenticator
	registry DocumentRegistry
	sharing  SharingEngine
	links    LinkManager
	cfg      HandlerConfig
	log      *slog.Logger
}

func NewHandler(auth Authenticator, registry DocumentRegistry, sharing SharingEngine, links LinkManager, cfg HandlerConfig, log *slog.Logger) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/")
	return &Handler{
		auth:     auth,
		registry: registry,
		sharing:  sharing,
		links:    links,
		cfg:      cfg,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/auth/register", h.HandleRegisterIdentity)
	r.Post("/api/auth/login", h.HandleLogin)
	r.Post("/api/documents/verify", h.HandleVerify)
	r.Get("/api/public/links/{id}", h.HandleResolveLink)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/api/me", h.HandleMe)
		r.Get("/api/identities/{email}", h.HandleLookupIdentity)

		r.Post("/api/documents", h.HandleRegisterDocument)
		r.Get("/api/documents", h.HandleListDocuments)
		r.Post("/api/documents/revoke", h.HandleRevoke)
		r.Get("/api/documents/{hash}/key", h.HandleRecoverKey)
		r.Post("/api/documents/{hash}/share", h.HandleShare)
		r.Post("/api/documents/{hash}/links", h.HandleCreateLink)

		r.Get("/api/links", h.HandleListLinks)
		r.Delete("/api/links/{id}", h.HandleDisableLink)

		r.Get("/api/shared", h.HandleSharedWithMe)
		r.Get("/api/shared/{hash}", h.HandleOpenShared)
	})
}

func (h *Handler) HandleRegisterIdentity(w http.ResponseWriter, r *http.Request) {
	var req RegisterIdentityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	identity, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Success bool             `json:"success"`
		User    IdentityResponse `json:"user"`
	}{true, identityResponse(identity)})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, identity, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Success: true, Token: token, User: identityResponse(identity)})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	writeJSON(w, http.StatusOK, identityResponse(identity))
}

// HandleLookupIdentity returns the public part of another identity, for
// callers that address a recipient by key rather than by email.
func (h *Handler) HandleLookupIdentity(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.LookupByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, identityResponse(identity))
}

// HandleRegisterDocument registers the uploaded "file" form field. An optional
// "hash" names the original content when the upload was encrypted client-side.
func (h *Handler) HandleRegisterDocument(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	content, filename, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if content == nil {
		h.writeError(w, r, fmt.Errorf("%w: no file uploaded", interfaces.ErrInvalidArgument))
		return
	}

	req := registry.RegisterRequest{
		Content:      content,
		OriginalName: cleanFilename(r.FormValue("originalName")),
	}
	if req.OriginalName == "" {
		req.OriginalName = cleanFilename(filename)
	}
	if key := r.FormValue("encryptionKey"); key != "" {
		req.EscrowKey = []byte(key)
	}
	if raw := r.FormValue("hash"); raw != "" {
		hash, err := interfaces.ParseContentHash(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: %v", interfaces.ErrInvalidArgument, err))
			return
		}
		req.ExplicitHash = &hash
	}

	result, err := h.registry.RegisterDocument(r.Context(), identity, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := RegisterDocumentResponse{
		Success:           true,
		AlreadyRegistered: result.AlreadyRegistered,
		Document:          documentResponse(result.Record),
	}
	if !result.AlreadyRegistered {
		resp.TxHash = result.TxHash.Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	records, err := h.registry.ListDocuments(r.Context(), identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	documents := make([]DocumentResponse, 0, len(records))
	for _, record := range records {
		documents = append(documents, documentResponse(record))
	}
	writeJSON(w, http.StatusOK, ListDocumentsResponse{Success: true, Documents: documents})
}

// HandleVerify answers for the uploaded "file" only. The hash is always derived
// from the bytes, so a caller must hold the document to learn anything about it.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	content, _, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if content == nil {
		h.writeError(w, r, fmt.Errorf("%w: a file upload is required", interfaces.ErrInvalidArgument))
		return
	}

	verification, err := h.registry.Verify(r.Context(), interfaces.Identify(content))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse(verification))
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	hash, err := h.hashFromRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	record, err := h.registry.RevokeDocument(r.Context(), identity, hash)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RevokeResponse{Success: true, Document: documentResponse(record)})
}

func (h *Handler) HandleRecoverKey(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	hash, err := hashParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	key, err := h.registry.RecoverKey(r.Context(), identity, hash)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, KeyResponse{Success: true, Hash: hash, Key: string(key)})
}

func (h *Handler) HandleShare(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	hash, err := hashParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req ShareRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.RecipientEmail == "" {
		h.writeError(w, r, fmt.Errorf("%w: recipientEmail is required", interfaces.ErrInvalidArgument))
		return
	}

	share, err := h.sharing.ShareWithEmail(r.Context(), hash, identity, req.RecipientEmail)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ShareResponse{Success: true, Share: shareDetail(share)})
}

func (h *Handler) HandleSharedWithMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	shares, err := h.sharing.SharedWith(r.Context(), identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	details := make([]ShareDetail, 0, len(shares))
	for _, share := range shares {
		details = append(details, shareDetail(share))
	}
	writeJSON(w, http.StatusOK, ListSharesResponse{Success: true, Shares: details})
}

func (h *Handler) HandleOpenShared(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	hash, err := hashParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	doc, err := h.sharing.OpenShared(r.Context(), hash, identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OpenSharedResponse{
		Success:  true,
		Hash:     doc.Hash,
		BlobRef:  doc.BlobRef,
		FileKey:  string(doc.Key),
		Filename: doc.Filename,
	})
}

func (h *Handler) HandleCreateLink(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	hash, err := hashParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req CreateLinkRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, err)
		return
	}

	link, err := h.links.CreateLink(r.Context(), hash, identity, req.ExpiresAt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.linkResponse(link))
}

func (h *Handler) HandleListLinks(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	links, err := h.links.ListLinks(r.Context(), identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := ListLinksResponse{Success: true, Links: make([]LinkResponse, 0, len(links))}
	for _, link := range links {
		resp.Links = append(resp.Links, h.linkResponse(link))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleDisableLink(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	if err := h.links.DisableLink(r.Context(), chi.URLParam(r, "id"), identity); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleResolveLink verifies the document behind a public link. Anonymous.
func (h *Handler) HandleResolveLink(w http.ResponseWriter, r *http.Request) {
	verification, err := h.links.ResolveLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PublicLinkResponse{Success: true, Document: verification})
}

func (h *Handler) linkResponse(link *interfaces.PublicLink) LinkResponse {
	resp := LinkResponse{
		ID:           link.ID,
		DocumentHash: link.DocumentHash,
		Enabled:      link.Enabled,
		ExpiresAt:    link.ExpiresAt,
		CreatedAt:    link.CreatedAt,
	}
	if h.cfg.PublicURL != "" {
		resp.URL = h.cfg.PublicURL + "/verify/" + link.ID
	}
	return resp
}

// readUpload returns the "file" part of a multipart body, or nil content when
// the request carries none.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("%w: %v", interfaces.ErrInvalidArgument, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("%w: %v", interfaces.ErrInvalidArgument, err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", interfaces.ErrInvalidArgument, err)
	}
	return content, header.Filename, nil
}

// hashFromRequest takes the hash of an uploaded file, or the "hash" field of a
// JSON or form body.
func (h *Handler) hashFromRequest(w http.ResponseWriter, r *http.Request) (interfaces.ContentHash, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		content, _, err := h.readUpload(w, r)
		if err != nil {
			return interfaces.ContentHash{}, err
		}
		if content != nil {
			return interfaces.Identify(content), nil
		}
		return parseHash(r.FormValue("hash"))
	}

	var req HashRequest
	if err := decodeJSON(r, &req); err != nil {
		return interfaces.ContentHash{}, err
	}
	return parseHash(req.Hash)
}

func hashParam(r *http.Request) (interfaces.ContentHash, error) {
	return parseHash(chi.URLParam(r, "hash"))
}

func parseHash(raw string) (interfaces.ContentHash, error) {
	if raw == "" {
		return interfaces.ContentHash{}, fmt.Errorf("%w: no file or hash provided", interfaces.ErrInvalidArgument)
	}
	hash, err := interfaces.ParseContentHash(raw)
	if err != nil {
		return interfaces.ContentHash{}, fmt.Errorf("%w: %v", interfaces.ErrInvalidArgument, err)
	}
	return hash, nil
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", interfaces.ErrInvalidArgument, err)
	}
	return nil
}

// cleanFilename replaces the narrow and regular no-break spaces some clients
// put into file names.
func cleanFilename(name string) string {
	return strings.TrimSpace(strings.NewReplacer("\u202f", " ", "\u00a0", " ").Replace(name))
}

func identityResponse(identity *interfaces.Identity) IdentityResponse {
	resp := IdentityResponse{
		Address:   identity.ID,
		Email:     identity.Email,
		Name:      identity.DisplayName,
		CreatedAt: identity.CreatedAt,
	}
	if len(identity.PublicKey) > 0 {
		resp.PublicKey = "0x" + hex.EncodeToString(identity.PublicKey)
	}
	return resp
}
