package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	t.Run("sets baseline headers", func(t *testing.T) {
		m := NewSecurityHeadersMiddleware(false)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		m.Handler(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("adds HSTS in production", func(t *testing.T) {
		m := NewSecurityHeadersMiddleware(true)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		m.Handler(okHandler()).ServeHTTP(rec, req)

		assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=")
	})
}

func TestBodyLimitMiddleware(t *testing.T) {
	t.Run("rejects oversized declared bodies", func(t *testing.T) {
		m := NewBodyLimitMiddleware(16)
		body := bytes.NewBufferString(strings.Repeat("x", 64))
		req := httptest.NewRequest(http.MethodPost, "/", body)
		rec := httptest.NewRecorder()

		m.Handler(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("passes small bodies through", func(t *testing.T) {
		m := NewBodyLimitMiddleware(1024)
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("ok"))
		rec := httptest.NewRecorder()

		m.Handler(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRecoverer(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	Recoverer(panicking).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestProvisionAuthMiddleware(t *testing.T) {
	t.Run("returns 503 when no key is configured", func(t *testing.T) {
		m := NewProvisionAuthMiddleware("")
		req := httptest.NewRequest(http.MethodPost, "/v1/codes", nil)
		rec := httptest.NewRecorder()

		m.Handler(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("rejects a missing key", func(t *testing.T) {
		m := NewProvisionAuthMiddleware("super-secret-provisioning-key")
		req := httptest.NewRequest(http.MethodPost, "/v1/codes", nil)
		rec := httptest.NewRecorder()

		m.Handler(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a wrong key", func(t *testing.T) {
		m := NewProvisionAuthMiddleware("super-secret-provisioning-key")
		req := httptest.NewRequest(http.MethodPost, "/v1/codes", nil)
		req.Header.Set(ProvisionKeyHeader, "guess")
		rec := httptest.NewRecorder()

		m.Handler(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts the configured key", func(t *testing.T) {
		m := NewProvisionAuthMiddleware("super-secret-provisioning-key")
		req := httptest.NewRequest(http.MethodPost, "/v1/codes", nil)
		req.Header.Set(ProvisionKeyHeader, "super-secret-provisioning-key")
		rec := httptest.NewRecorder()

		m.Handler(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
