package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dshubhambadola/CivicSeal/auth"
	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, interfaces.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, interfaces.ErrNotFound),
		errors.Is(err, interfaces.ErrShareNotFound),
		errors.Is(err, interfaces.ErrNotRegistered),
		errors.Is(err, interfaces.ErrBlobNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrGone):
		return http.StatusGone
	case errors.Is(err, interfaces.ErrAlreadyRevoked), errors.Is(err, interfaces.ErrIdentityExists):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrLedgerUnavailable), errors.Is(err, interfaces.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal error detail from clients on 5xx.
func publicMessage(err error, status int) string {
	switch {
	case errors.Is(err, interfaces.ErrKeyRecovery):
		return interfaces.ErrKeyRecovery.Error()
	case status == http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	case status >= http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "err", err, slog.String("path", r.URL.Path), slog.Int("status", status))
	} else {
		h.log.Debug("Request rejected", "err", err, slog.String("path", r.URL.Path), slog.Int("status", status))
	}
	writeJSON(w, status, ErrorResponse{Error: publicMessage(err, status)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
