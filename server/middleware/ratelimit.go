package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/191-iota/textreflex/config"
	"github.com/191-iota/textreflex/errors"
	"github.com/191-iota/textreflex/server/metrics"
)

// idleEvictFactor scales the window into the idle span after which a
// visitor's bucket is full again and its entry can be dropped.
const idleEvictFactor = 3

// RateLimiter implements per-IP rate limiting backed by token buckets.
// Each instance owns its visitor table, so separate servers (and tests)
// do not share state. Idle entries are swept out so the table stays
// bounded on long-running servers.
type RateLimiter struct {
	requests int
	window   time.Duration
	metrics  *metrics.Metrics

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter from config. The metrics
// argument may be nil.
func NewRateLimiter(cfg config.RateLimitConfig, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		requests:  cfg.Requests,
		window:    cfg.Window,
		metrics:   m,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

func (l *RateLimiter) getOrCreate(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.window {
		l.sweep(now)
	}

	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.requests)), l.requests),
		}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter
}

// sweep drops visitors idle long enough that their bucket has refilled;
// a fresh entry behaves identically, so nothing is lost. Caller holds mu.
func (l *RateLimiter) sweep(now time.Time) {
	idleCutoff := time.Duration(idleEvictFactor) * l.window
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > idleCutoff {
			delete(l.visitors, ip)
		}
	}
	l.lastSweep = now
}

// Middleware enforces the rate limit and answers 429 with a typed
// error body when a client exceeds it.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if idx := strings.LastIndex(ip, ":"); idx != -1 {
			ip = ip[:idx] // Strip port number if present
		}

		if !l.getOrCreate(ip).Allow() {
			if l.metrics != nil {
				l.metrics.RateLimitHits.WithLabelValues(ip).Inc()
			}

			errResp := errors.NewError(
				errors.RateLimitError,
				"Rate limit exceeded",
				http.StatusTooManyRequests,
				GetRequestID(r.Context()),
				map[string]interface{}{
					"limit":  int64(l.requests), // Use int64 to ensure it's not converted to float64
					"window": l.window.String(),
				},
				nil,
			)

			errors.WriteError(w, errResp)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Reset clears all rate limiters. Only used for testing.
func (l *RateLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visitors = make(map[string]*visitor)
	l.lastSweep = time.Now()
}
