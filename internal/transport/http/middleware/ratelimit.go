package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/vedran77/anonbox/internal/ratelimit"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// RateLimit counts requests per client IP. When the limiter itself fails the
// request is let through.
func RateLimit(l Limiter, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)

			res, err := l.Allow(r.Context(), ip)
			if err != nil {
				logrus.WithError(err).WithField("ip", ip).Error("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				retry := strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds())))
				w.Header().Set("RateLimit-Reset", retry)
				w.Header().Set("Retry-After", retry)
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
