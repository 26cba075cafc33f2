package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter hands out a token bucket per client IP. Buckets are dropped
// wholesale every cleanup interval to bound memory.
type RateLimiter struct {
	limiters      map[string]*rate.Limiter
	mutex         sync.RWMutex
	limit         rate.Limit
	burst         int
	cleanupTicker *time.Ticker
}

// NewRateLimiter creates a rate limiter allowing requestsPerSecond per IP
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	limiter := &RateLimiter{
		limiters:      make(map[string]*rate.Limiter),
		limit:         rate.Limit(requestsPerSecond),
		burst:         burst,
		cleanupTicker: time.NewTicker(5 * time.Minute),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.mutex.Lock()
		rl.limiters = make(map[string]*rate.Limiter)
		rl.mutex.Unlock()
	}
}

// Stop stops the cleanup ticker
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mutex.RLock()
	limiter, exists := rl.limiters[ip]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if limiter, exists = rl.limiters[ip]; !exists {
			limiter = rate.NewLimiter(rl.limit, rl.burst)
			rl.limiters[ip] = limiter
		}
		rl.mutex.Unlock()
	}

	return limiter
}

// Middleware limits requests based on client IP
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.getLimiter(c.ClientIP())

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
