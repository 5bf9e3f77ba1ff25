package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

// RateLimiter hands out one token bucket per client IP. Buckets idle for
// limiterIdle are evicted.
type RateLimiter struct {
	every    time.Duration
	burst    int
	limiters *cache.Cache
}

func NewRateLimiter(every time.Duration, burst int) *RateLimiter {
	if every <= 0 {
		every = 600 * time.Millisecond
	}
	if burst <= 0 {
		burst = 20
	}
	return &RateLimiter{every: every, burst: burst, limiters: cache.New(limiterIdle, time.Minute)}
}

func (l *RateLimiter) get(ip string) *rate.Limiter {
	if x, found := l.limiters.Get(ip); found {
		l.limiters.SetDefault(ip, x)
		return x.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Every(l.every), l.burst)
	if err := l.limiters.Add(ip, lim, cache.DefaultExpiration); err != nil {
		if x, found := l.limiters.Get(ip); found {
			return x.(*rate.Limiter)
		}
	}
	return lim
}

// Len is the number of tracked clients.
func (l *RateLimiter) Len() int { return l.limiters.ItemCount() }

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
