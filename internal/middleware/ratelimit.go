package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"bonlog/internal/seclog"
)

// visitor tracks one client's request count inside the current window.
type visitor struct {
	count       int
	windowStart time.Time
	lastSeen    time.Time
}

// RateLimiter is a fixed-window per-IP request counter.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	cleanup  time.Duration
}

// NewRateLimiter creates a limiter allowing rate requests per window.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		cleanup:  2 * window,
	}
}

// Allow reports whether another request from ip fits in the current window.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.windowStart) >= rl.window {
		rl.visitors[ip] = &visitor{count: 1, windowStart: now, lastSeen: now}
		rl.pruneLocked(now)
		return true
	}

	v.lastSeen = now
	if v.count >= rl.rate {
		return false
	}
	v.count++
	return true
}

// pruneLocked drops visitors idle past the cleanup horizon. Caller holds mu.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.cleanup {
			delete(rl.visitors, ip)
		}
	}
}

// RateLimitConfig routes requests to limiters by path class. Auth endpoints
// get the tightest budget since they gate credential guessing.
type RateLimitConfig struct {
	AuthLimiter   *RateLimiter
	AdminLimiter  *RateLimiter
	GlobalLimiter *RateLimiter

	// Events, when set, records blocked requests as security events.
	Events *seclog.Logger
}

// NewDefaultRateLimitConfig returns production limits.
func NewDefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		AuthLimiter:   NewRateLimiter(10, time.Minute),
		AdminLimiter:  NewRateLimiter(60, time.Minute),
		GlobalLimiter: NewRateLimiter(120, time.Minute),
	}
}

func (c *RateLimitConfig) limiterFor(path string) *RateLimiter {
	switch {
	case strings.HasPrefix(path, "/auth/"):
		return c.AuthLimiter
	case strings.HasPrefix(path, "/admin/"):
		return c.AdminLimiter
	default:
		return c.GlobalLimiter
	}
}

// RateLimitMiddleware rejects requests over the per-IP budget with 429.
func RateLimitMiddleware(config *RateLimitConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = NewDefaultRateLimitConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)
			if !config.limiterFor(r.URL.Path).Allow(ip) {
				if config.Events != nil {
					config.Events.RateLimitExceeded(r.URL.Path, ip)
				}
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
