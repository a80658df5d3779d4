package rpc

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-client token bucket keyed by remote address.
type RateLimiter struct {
	perMinute float64
	burst     int

	mu       sync.Mutex
	visitors map[string]*rate.Limiter
}

// NewRateLimiter constructs a limiter allowing perMinute requests per client
// with a burst of perMinute/10 (minimum 5).
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 600
	}
	burst := perMinute / 10
	if burst < 5 {
		burst = 5
	}
	return &RateLimiter{
		perMinute: float64(perMinute),
		burst:     burst,
		visitors:  make(map[string]*rate.Limiter),
	}
}

func (r *RateLimiter) obtain(client string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	limiter, ok := r.visitors[client]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(r.perMinute/60.0), r.burst)
		r.visitors[client] = limiter
	}
	return limiter
}

// Middleware rejects clients over their limit with 429.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.obtain(clientID(req)).Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func clientID(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
