package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/devpair/pairing-server-go/internal/audit"
	"github.com/devpair/pairing-server-go/internal/service"
)

// IPRateLimitMiddleware throttles unauthenticated endpoints per client IP.
// /pair needs this: before pairing succeeds there is no account to key on.
type IPRateLimitMiddleware struct {
	limiter *service.RateLimiter
	limit   int
	window  time.Duration
	prefix  string
}

func NewIPRateLimitMiddleware(limiter *service.RateLimiter, limit int, window time.Duration, prefix string) *IPRateLimitMiddleware {
	return &IPRateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
	}
}

func (m *IPRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr

		key := fmt.Sprintf("ip:%s:%s", m.prefix, ip)
		allowed, resetAt := m.limiter.CheckLimit(r.Context(), key, m.limit, m.window)

		if !allowed {
			audit.LogFromRequest(r, audit.Event{
				Type: audit.EventRateLimitExceed,
				Details: map[string]interface{}{
					"endpoint": m.prefix,
				},
			})
			secondsLeft := int(time.Until(resetAt).Seconds()) + 1
			w.Header().Set("Retry-After", fmt.Sprintf("%d", secondsLeft))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"success": false,
				"message": "Too many requests. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
