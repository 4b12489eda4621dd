// File: internal/middleware/ratelimit.go
package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/iyunix/oni-chat/internal/ratelimit"
)

// RateLimitMiddleware rejects requests over the per-client limit with 429.
func RateLimitMiddleware(limiter *ratelimit.MemoryRateLimiter, name string, logger Logger) func(http.Handler) http.Handler {
	logger = orNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := ratelimit.GetClientIP(r)
			allowed, info := limiter.Allow(clientIP)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))

			if !allowed {
				retry := int(math.Ceil(info.RetryAfter.Seconds()))
				logger.Warn("rate limited", "endpoint", name, "client_ip", clientIP, "retry_after", retry)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeJSONError(w, http.StatusTooManyRequests, map[string]interface{}{
					"error":      "rate_limited",
					"retryAfter": retry,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
