package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is an in-memory per-client token bucket. Good enough for a
// single-process deployment; a multi-instance setup would move this to Redis.
type RateLimiter struct {
	capacity int
	perMin   int
	mu       sync.Mutex
	clients  map[string]*bucket
}

type bucket struct {
	tokens   int
	refilled time.Time
}

// NewRateLimiter allows perMinute requests per client IP with bursts up to
// the same size.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{
		capacity: perMinute,
		perMin:   perMinute,
		clients:  make(map[string]*bucket),
	}
}

// Middleware returns a gin handler enforcing the per-IP limit.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(ip, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please slow down"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.clients[key]
	if !ok {
		l.clients[key] = &bucket{tokens: l.capacity - 1, refilled: now}
		return true
	}
	if refill := int(now.Sub(b.refilled).Minutes() * float64(l.perMin)); refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.refilled = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}
