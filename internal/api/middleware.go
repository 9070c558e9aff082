package api

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/Sri-Charith/Hevaul-AI/internal/metrics"
	"github.com/Sri-Charith/Hevaul-AI/internal/redis"
)

// KeyFunc extracts the rate-limit key from a request. Empty string means
// the request cannot be attributed and is let through.
type KeyFunc func(r *http.Request) string

// UserKey keys rate limiting by user: the X-User-ID header first, falling
// back to the user_id query parameter.
func UserKey(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("user_id")
}

// RateLimitMiddleware enforces a sliding-window rate limit per key. If the
// limiter is nil (Redis not configured) it is a no-op.
func RateLimitMiddleware(limiter *redis.RateLimiter, logger *zap.Logger, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// fail open: a Redis outage must not take down the API
				logger.Warn("rate limiter unavailable, allowing request",
					zap.Error(err),
					zap.String("key", key),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				metrics.RecordRateLimitRejection(key)
				logger.Debug("rate limit exceeded",
					zap.String("key", key),
					zap.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"type":"rate_limited","title":"Too many requests","status":429}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
