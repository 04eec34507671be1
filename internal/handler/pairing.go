package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/devpair/pairing-server-go/internal/errors"
	"github.com/devpair/pairing-server-go/internal/httputil"
	"github.com/devpair/pairing-server-go/internal/service"
)

type PairRequest struct {
	UserID   string `json:"userId"`
	DeviceID string `json:"deviceId"`
	Code     string `json:"code"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type PairingHandler struct {
	pairingService *service.PairingService
	isProduction   bool
}

func NewPairingHandler(pairingService *service.PairingService, isProduction bool) *PairingHandler {
	return &PairingHandler{
		pairingService: pairingService,
		isProduction:   isProduction,
	}
}

// POST /pair
func (h *PairingHandler) Pair(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Invalid JSON body",
		})
		return
	}

	// Validation failures never reach the store.
	if fieldErrors := validatePairRequest(&req); len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Validation failed",
			"errors":  fieldErrors,
		})
		return
	}

	result, err := h.pairingService.Pair(r.Context(), req.UserID, req.DeviceID, req.Code)
	if err != nil {
		h.writePairError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Device paired successfully",
		"pairingToken": result.Token,
		"expiresIn":    result.ExpiresIn,
	})
}

func (h *PairingHandler) writePairError(w http.ResponseWriter, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		code := appErr.Code
		if code != apperrors.ErrCodeInternal && code != apperrors.ErrCodeDatabase {
			httputil.WriteError(w, appErr)
			return
		}
	}

	log.Error().Err(err).Msg("pair: internal error")
	body := map[string]any{
		"success": false,
		"message": "Internal server error during pairing",
	}
	if !h.isProduction {
		body["detail"] = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

func validatePairRequest(req *PairRequest) []FieldError {
	var fieldErrors []FieldError

	if strings.TrimSpace(req.UserID) == "" {
		fieldErrors = append(fieldErrors, FieldError{Field: "userId", Message: "userId is required"})
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		fieldErrors = append(fieldErrors, FieldError{Field: "deviceId", Message: "deviceId is required"})
	}
	if len(strings.TrimSpace(req.Code)) != service.PairingCodeLength {
		fieldErrors = append(fieldErrors, FieldError{Field: "code", Message: "code must be exactly 6 characters"})
	}

	return fieldErrors
}
