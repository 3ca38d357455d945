package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dshubhambadola/CivicSeal/api"
	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// StatusCode extracts the HTTP status from err, or 0 if it is not an APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Client talks to one CivicSeal server. Token is sent as a bearer token when set.
type Client struct {
	ServerAddr string
	Token      string

	httpClient *http.Client
}

func NewClient(serverAddr string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		ServerAddr: strings.TrimSuffix(serverAddr, "/"),
		httpClient: httpClient,
	}
}

type RegisterOptions struct {
	// Hash names the original content when the uploaded bytes were encrypted.
	Hash          *interfaces.ContentHash
	EncryptionKey string
	OriginalName  string
}

func (c *Client) RegisterIdentity(ctx context.Context, email, password, name string) (*api.IdentityResponse, error) {
	var resp struct {
		User api.IdentityResponse `json:"user"`
	}
	req := api.RegisterIdentityRequest{Email: email, Password: password, Name: name}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Login returns a session token. It does not set c.Token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp api.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", api.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *Client) Me(ctx context.Context) (*api.IdentityResponse, error) {
	var resp api.IdentityResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LookupIdentity returns the public identity registered under email.
func (c *Client) LookupIdentity(ctx context.Context, email string) (*api.IdentityResponse, error) {
	var resp api.IdentityResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/identities/"+url.PathEscape(email), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RegisterDocument(ctx context.Context, filename string, content []byte, opts RegisterOptions) (*api.RegisterDocumentResponse, error) {
	fields := map[string]string{}
	if opts.Hash != nil {
		fields["hash"] = opts.Hash.String()
	}
	if opts.EncryptionKey != "" {
		fields["encryptionKey"] = opts.EncryptionKey
	}
	if opts.OriginalName != "" {
		fields["originalName"] = opts.OriginalName
	}

	var resp api.RegisterDocumentResponse
	if err := c.doMultipart(ctx, "/api/documents", filename, content, fields, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]api.DocumentResponse, error) {
	var resp api.ListDocumentsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// Verify uploads content and reports its registration state. The server derives
// the hash from the bytes.
func (c *Client) Verify(ctx context.Context, filename string, content []byte) (*api.VerifyResponse, error) {
	var resp api.VerifyResponse
	if err := c.doMultipart(ctx, "/api/documents/verify", filename, content, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Revoke(ctx context.Context, hash interfaces.ContentHash) (*api.DocumentResponse, error) {
	var resp api.RevokeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/documents/revoke", api.HashRequest{Hash: hash.String()}, &resp); err != nil {
		return nil, err
	}
	return &resp.Document, nil
}

func (c *Client) RecoverKey(ctx context.Context, hash interfaces.ContentHash) (string, error) {
	var resp api.KeyResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents/"+hash.String()+"/key", nil, &resp); err != nil {
		return "", err
	}
	return resp.Key, nil
}

func (c *Client) Share(ctx context.Context, hash interfaces.ContentHash, recipientEmail string) (*api.ShareDetail, error) {
	var resp api.ShareResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/documents/"+hash.String()+"/share", api.ShareRequest{RecipientEmail: recipientEmail}, &resp); err != nil {
		return nil, err
	}
	return &resp.Share, nil
}

func (c *Client) SharedWithMe(ctx context.Context) ([]api.ShareDetail, error) {
	var resp api.ListSharesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/shared", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Shares, nil
}

func (c *Client) OpenShared(ctx context.Context, hash interfaces.ContentHash) (*api.OpenSharedResponse, error) {
	var resp api.OpenSharedResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/shared/"+hash.String(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateLink(ctx context.Context, hash interfaces.ContentHash, expiresAt *time.Time) (*api.LinkResponse, error) {
	var resp api.LinkResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/documents/"+hash.String()+"/links", api.CreateLinkRequest{ExpiresAt: expiresAt}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DisableLink(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/links/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ResolveLink(ctx context.Context, id string) (*interfaces.PublicVerification, error) {
	var resp api.PublicLinkResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/public/links/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Document, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.ServerAddr+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) doMultipart(ctx context.Context, path, filename string, content []byte, fields map[string]string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServerAddr+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var parsed api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil && parsed.Error != "" {
			apiErr.Message = parsed.Error
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}
