package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpair/pairing-server-go/internal/model"
	"github.com/devpair/pairing-server-go/internal/repository"
	"github.com/devpair/pairing-server-go/internal/service"
	"github.com/devpair/pairing-server-go/internal/util"
)

func newSessionFixture(t *testing.T) (*chi.Mux, *repository.MemorySessionRepository) {
	t.Helper()
	sessionRepo := repository.NewMemorySessionRepository()
	h := NewSessionHandler(service.NewSessionService(sessionRepo))

	r := chi.NewRouter()
	r.Mount("/v1/sessions", h.Routes())
	return r, sessionRepo
}

func TestSessionHandler_Status(t *testing.T) {
	t.Run("returns status for an active session", func(t *testing.T) {
		r, sessionRepo := newSessionFixture(t)

		raw := "raw-session-token"
		err := sessionRepo.Create(context.Background(), &model.Session{
			ID:        "s1",
			TokenHash: util.HashToken(raw),
			UserID:    "u1",
			DeviceID:  "d1",
			IssuedAt:  time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+raw, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp service.SessionStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Active)
		assert.Equal(t, "u1", resp.UserID)
		assert.Equal(t, "d1", resp.DeviceID)
		assert.Greater(t, resp.ExpiresIn, 0)
	})

	t.Run("unknown token returns 404", func(t *testing.T) {
		r, _ := newSessionFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/does-not-exist", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("expired session returns 404", func(t *testing.T) {
		r, sessionRepo := newSessionFixture(t)

		raw := "expired-token"
		err := sessionRepo.Create(context.Background(), &model.Session{
			ID:        "s1",
			TokenHash: util.HashToken(raw),
			UserID:    "u1",
			DeviceID:  "d1",
			IssuedAt:  time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+raw, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
