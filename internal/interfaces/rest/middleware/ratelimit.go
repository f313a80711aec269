package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/interfaces/rest"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than the cleanup interval are dropped, and the oldest one is evicted when
// the cache is full.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rate     rate.Limit
	burst    int
	maxSize  int
	idle     time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		maxSize:  10000,
		idle:     5 * time.Minute,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	for ip, l := range rl.limiters {
		if l.lastAccess.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}

// Shutdown stops the cleanup goroutine.
func (rl *RateLimiter) Shutdown() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if l, ok := rl.limiters[ip]; ok {
		l.lastAccess = now
		return l.limiter
	}

	if len(rl.limiters) >= rl.maxSize {
		var oldestIP string
		var oldest time.Time
		for ip, l := range rl.limiters {
			if oldestIP == "" || l.lastAccess.Before(oldest) {
				oldestIP, oldest = ip, l.lastAccess
			}
		}
		delete(rl.limiters, oldestIP)
	}

	l := &ipLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst), lastAccess: now}
	rl.limiters[ip] = l
	return l.limiter
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getLimiter(rest.ClientIP(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			rest.WriteJSON(w, http.StatusTooManyRequests, rest.ErrorResponse{
				Error: rest.ErrorDetail{Code: "RATE_LIMITED", Message: "Rate limit exceeded. Please try again later."},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
