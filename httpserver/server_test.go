package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dshubhambadola/CivicSeal/api"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(r chi.Router) {
	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/api/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
}

func newTestServer(t *testing.T, pprof bool) *Server {
	t.Helper()
	srv, err := New(&api.HTTPServerConfig{
		ListenAddr:    "127.0.0.1:0",
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		EnablePprof:   pprof,
		DrainDuration: time.Millisecond,
	}, pingRoutes{}, nil)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRoutesMounted(t *testing.T) {
	router := newTestServer(t, false).Router()

	w := get(t, router, "/api/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = get(t, router, "/livez")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())

	w = get(t, router, "/debug/pprof/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPanicRecovered(t *testing.T) {
	router := newTestServer(t, false).Router()
	w := get(t, router, "/api/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDrainUndrain(t *testing.T) {
	router := newTestServer(t, false).Router()

	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)

	w := get(t, router, "/drain")
	assert.JSONEq(t, `{"status":"draining"}`, w.Body.String())
	w = get(t, router, "/drain")
	assert.JSONEq(t, `{"status":"already draining"}`, w.Body.String())

	w = get(t, router, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = get(t, router, "/undrain")
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
	w = get(t, router, "/undrain")
	assert.JSONEq(t, `{"status":"already ready"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)
}

func TestPprofEnabled(t *testing.T) {
	router := newTestServer(t, true).Router()
	w := get(t, router, "/debug/pprof/")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_AppliesConfigDefaults(t *testing.T) {
	srv := newTestServer(t, false)
	assert.Equal(t, api.DefaultReadHeaderTimeout, srv.srv.ReadHeaderTimeout)
	assert.Equal(t, api.DefaultWriteTimeout, srv.srv.WriteTimeout)
	assert.Equal(t, api.DefaultGracefulShutdown, srv.cfg.GracefulShutdownDuration)

	_, err := New(&api.HTTPServerConfig{}, pingRoutes{}, nil)
	assert.Error(t, err)
}
