package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/devpair/pairing-server-go/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{token}", h.Status)

	return r
}

// GET /v1/sessions/{token}
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	rawToken := chi.URLParam(r, "token")
	if rawToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Session token is required",
		})
		return
	}

	status, err := h.sessionService.Status(r.Context(), rawToken)
	if err != nil {
		log.Error().Err(err).Msg("failed to get session status")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Internal server error",
		})
		return
	}

	if status == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"message": "Session not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, status)
}
