package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/bracketd/pkg/metrics"
)

const defaultVisitorIdle = 3 * time.Minute

// visitor holds the rate limiter and the last time we saw this IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client IP. Visitors idle for
// longer than the idle window are forgotten.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	idle  time.Duration

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows rps requests per second per IP with the given
// burst. A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    max(burst, 1),
		idle:     defaultVisitorIdle,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Allow reports whether a request from ip may proceed.
func (l *RateLimiter) Allow(ip string) bool {
	if l.rps <= 0 {
		return true
	}

	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) > l.idle {
		l.sweep(now)
	}
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// sweep drops idle visitors. Callers hold l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, ip)
		}
	}
	l.lastSweep = now
}

// Visitors returns the number of tracked IPs.
func (l *RateLimiter) Visitors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	const op = "api.rate_limit"
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			metrics.RecordRateLimited(endpoint)
			writeError(w, http.StatusTooManyRequests, "rate_limited", NewKind(op, ErrRateLimited))
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
