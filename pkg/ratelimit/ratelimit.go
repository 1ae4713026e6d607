// Package ratelimit enforces a fixed-window request ceiling per client and
// route, counted in the shared store so every gateway replica sees the same
// window. A process-local token bucket backstops the store.
package ratelimit

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kru-ai/kru/pkg/apperrors"
	"github.com/kru-ai/kru/pkg/store"
)

const keyPrefix = "rate_limit:"

// Limiter counts requests per (client IP, route path) within a window.
type Limiter struct {
	store  store.Store
	window time.Duration
	max    int64
}

// NewLimiter creates a Limiter allowing max requests per window.
func NewLimiter(s store.Store, max int64, window time.Duration) *Limiter {
	return &Limiter{store: s, window: window, max: max}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests past the ceiling with a 429 envelope and
// annotates every response with the rate-limit headers. A store outage
// fails open: the cache is an optimization, not an admission authority.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := keyPrefix + clientIP(r) + ":" + r.URL.Path
		count, err := l.store.Increment(r.Context(), key, l.window)
		if err != nil {
			log.Printf("ratelimit: counter degraded: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := l.max - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(l.max, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", time.Now().Add(l.window).UTC().Format(time.RFC3339))

		if count > l.max {
			apperrors.WriteHTTP(w, r, apperrors.New(apperrors.RateLimited,
				"rate limit exceeded, please try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Gate is a process-local token bucket applied before any store access. It
// caps total throughput when the shared counter is unavailable or under
// attack.
type Gate struct {
	lim *rate.Limiter
}

// NewGate permits rps requests per second with the given burst.
func NewGate(rps float64, burst int) *Gate {
	return &Gate{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Middleware rejects requests when the bucket is empty.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.lim.Allow() {
			apperrors.WriteHTTP(w, r, apperrors.New(apperrors.RateLimited, "server busy"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
