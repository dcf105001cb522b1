package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	clients map[string]*clientBucket
	now     func() time.Time
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

// allow records one request for key. When the key is over the limit it
// returns false and the time left in the window.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[key]
	if !ok || !now.Before(b.windowEnd) {
		rl.clients[key] = &clientBucket{count: 1, windowEnd: now.Add(rl.window)}
		return true, 0
	}

	if b.count >= rl.limit {
		return false, b.windowEnd.Sub(now)
	}

	b.count++
	return true, 0
}

// Sweep drops buckets whose window has closed.
func (rl *RateLimiter) Sweep() int {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := 0
	for k, b := range rl.clients {
		if !now.Before(b.windowEnd) {
			delete(rl.clients, k)
			n++
		}
	}
	return n
}

func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			key = clientIP(c)
		}

		ok, retryAfter := rl.allow(key)
		if !ok {
			secs := int(retryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}

			c.Header("Retry-After", strconv.Itoa(secs))
			abortWithError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again shortly.")
			return
		}

		c.Next()
	}
}

func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// KeyByUserOrIP keys authenticated requests by user id.
func KeyByUserOrIP(c *gin.Context) string {
	if id, ok := UserIDFromContext(c); ok {
		return "user:" + id
	}
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}

	return ip
}
