package handler

import (
	"net/http"
	"time"
)

// Health reports liveness. No dependencies are touched: a healthy listener
// answers even when the store is down, and the orchestrator restarts us on
// deeper failures.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
