package handler

import (
	"net/http"

	"github.com/devpair/pairing-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// NotFound answers unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"success": false,
		"message": "Endpoint not found",
	})
}

// MethodNotAllowed answers matched routes hit with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
		"success": false,
		"message": "Method not allowed",
	})
}
