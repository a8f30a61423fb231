package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/plantkeeper/internal/ratelimit"
	"github.com/sakif/plantkeeper/internal/respond"
)

// RateLimit admits at most limiter.Limit() requests per client per period.
// Rejected requests get 429 with X-RateLimit-* and Retry-After headers;
// admitted ones carry X-RateLimit-Limit and X-RateLimit-Remaining.
func RateLimit(limiter *ratelimit.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := ratelimit.Identity(r)
			d, err := limiter.Allow(r.Context(), identity)
			if err != nil {
				logger.Warn("rate limit exceeded",
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("client", identity),
					slog.String("path", r.URL.Path),
				)
				respond.Error(w, err)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
