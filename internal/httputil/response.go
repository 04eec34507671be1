package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/devpair/pairing-server-go/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Code    apperrors.ErrorCode `json:"code,omitempty"`
	Details any                 `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	WriteJSON(w, StatusFromCode(appErr.Code), ErrorResponse{
		Success: false,
		Message: appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}

// StatusFromCode maps ErrorCode to HTTP status code.
// DEVICE_MISMATCH maps to 404 on purpose: a device probing with the wrong
// identity must not be able to tell that the code exists.
func StatusFromCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired:
		return http.StatusBadRequest

	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized

	case apperrors.ErrCodeNotFound,
		apperrors.ErrCodePairingNotFound,
		apperrors.ErrCodeDeviceMismatch:
		return http.StatusNotFound

	case apperrors.ErrCodeConflict:
		return http.StatusConflict

	case apperrors.ErrCodePairingExpired,
		apperrors.ErrCodePairingConsumed:
		return http.StatusGone

	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	case apperrors.ErrCodeInternal,
		apperrors.ErrCodeDatabase:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
