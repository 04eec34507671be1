package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// Recoverer converts panics into a generic JSON 500. The stack goes to the
// log, never to the client.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("path", r.URL.Path).
					Msg("panic recovered")
				writeJSON(w, http.StatusInternalServerError, map[string]any{
					"success": false,
					"message": "Internal server error",
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
