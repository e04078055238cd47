package ratelimit

import (
	"net/http"

	"golang.org/x/time/rate"
)

// New returns a token-bucket limiter admitting rps requests per second with
// the given burst. It returns nil when rps is not positive, which disables limiting.
func New(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Middleware returns chi-compatible middleware that answers 429 once l has no
// tokens left. A nil limiter lets every request through.
func Middleware(l *rate.Limiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
