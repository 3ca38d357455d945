package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Dshubhambadola/CivicSeal/auth"
	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

type identityKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, identity *interfaces.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the identity stored by the auth middleware.
func IdentityFrom(ctx context.Context) (*interfaces.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*interfaces.Identity)
	return identity, ok && identity != nil
}

// RequireAuth rejects requests without a valid bearer token.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			h.writeError(w, r, auth.ErrInvalidToken)
			return
		}

		identity, err := h.auth.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}
