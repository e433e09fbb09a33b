package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"foodorder/internal/metrics"
	"foodorder/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter decides whether a request identified by key may proceed.
// Implementations may be process-local or backed by a shared store.
type RateLimiter interface {
	Allow(key string) bool
}

type keyLimiter struct {
	limiter *rate.Limiter
	last    time.Time
}

// MemoryRateLimiter is a token bucket per key.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	keys    map[string]*keyLimiter
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

func NewMemoryRateLimiter(rps float64, burst int) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		keys:    make(map[string]*keyLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

func (l *MemoryRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k, ok := l.keys[key]
	if !ok {
		k = &keyLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.keys[key] = k
	}
	k.last = now
	return k.limiter.AllowN(now, 1)
}

// Sweep drops keys idle for longer than the idle TTL.
func (l *MemoryRateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	removed := 0
	for key, k := range l.keys {
		if k.last.Before(cutoff) {
			delete(l.keys, key)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (l *MemoryRateLimiter) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// RateLimit rejects requests over the limit with 429, keyed by client IP.
func RateLimit(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			metrics.RateLimitedTotal.Inc()
			c.Header("Retry-After", "1")
			response.Abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please retry shortly")
			return
		}
		c.Next()
	}
}
