package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/devpair/pairing-server-go/internal/httputil"
	"github.com/devpair/pairing-server-go/internal/model"
	"github.com/devpair/pairing-server-go/internal/service"
)

type CreateCodeRequest struct {
	UserID           string  `json:"userId"`
	ExpectedDeviceID *string `json:"expectedDeviceId,omitempty"`
	ExpiresInSeconds int     `json:"expiresInSeconds,omitempty"`
}

// CodesHandler exposes the provisioning surface: generating and listing
// pairing codes for a user. It sits behind the provisioning key middleware.
type CodesHandler struct {
	pairingService *service.PairingService
}

func NewCodesHandler(pairingService *service.PairingService) *CodesHandler {
	return &CodesHandler{pairingService: pairingService}
}

func (h *CodesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)

	return r
}

// POST /v1/codes
func (h *CodesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Invalid JSON body",
		})
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Validation failed",
			"errors":  []FieldError{{Field: "userId", Message: "userId is required"}},
		})
		return
	}

	pc, err := h.pairingService.GenerateCode(
		r.Context(),
		req.UserID,
		req.ExpectedDeviceID,
		time.Duration(req.ExpiresInSeconds)*time.Second,
	)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"code":    pc,
	})
}

// GET /v1/codes?userId=...
func (h *CodesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Validation failed",
			"errors":  []FieldError{{Field: "userId", Message: "userId query parameter is required"}},
		})
		return
	}

	codes, err := h.pairingService.ListActiveCodes(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if codes == nil {
		codes = []model.PairingCode{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"codes":   codes,
	})
}
