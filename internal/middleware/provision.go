package middleware

import (
	"net/http"

	"github.com/devpair/pairing-server-go/internal/audit"
	"github.com/devpair/pairing-server-go/internal/util"
)

const ProvisionKeyHeader = "X-Provision-Key"

// ProvisionAuthMiddleware guards the code provisioning endpoints with a
// shared API key. Hashes are compared so the comparison is constant-time
// over fixed-length inputs.
type ProvisionAuthMiddleware struct {
	keyHash string
}

func NewProvisionAuthMiddleware(apiKey string) *ProvisionAuthMiddleware {
	m := &ProvisionAuthMiddleware{}
	if apiKey != "" {
		m.keyHash = util.HashToken(apiKey)
	}
	return m
}

func (m *ProvisionAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.keyHash == "" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"success": false,
				"message": "Provisioning not configured",
			})
			return
		}

		presented := r.Header.Get(ProvisionKeyHeader)
		if presented == "" || !util.ConstantTimeEqual(util.HashToken(presented), m.keyHash) {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventProvisionAuthErr})
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false,
				"message": "Invalid provisioning key",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
