package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// KeyFunc extracts the rate limit key from a request. An empty key skips
// limiting for that request.
type KeyFunc func(r *http.Request) string

// Middleware enforces l on every request that keyFunc maps to a key.
// Rejected requests get a Retry-After header and are handed to reject.
// Limiter errors are logged and the request proceeds.
func Middleware(l Limiter, keyFunc KeyFunc, logger *slog.Logger, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("ratelimit: limiter error, allowing request", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				retry := 1
				if ra, isRA := l.(RetryAfterer); isRA {
					retry = max(1, int(math.Ceil(ra.RetryAfter(key).Seconds())))
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPKeyFunc keys on the client IP from RemoteAddr. X-Forwarded-For is not
// trusted.
func IPKeyFunc(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return "ip:" + addr[:idx]
	}
	return "ip:" + addr
}
