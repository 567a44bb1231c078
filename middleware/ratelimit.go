package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"teamdash/services"

	"github.com/gin-gonic/gin"
)

// Limiter is satisfied by *ratelimit.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// RateLimitMiddleware counts requests per caller for endpoint. A nil limiter or
// a non-positive limit disables the check. Callers are keyed by uid once an
// auth middleware has run, else by client IP.
func RateLimitMiddleware(rl Limiter, endpoint string, limit int, window time.Duration) gin.HandlerFunc {
	if rl == nil || limit <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		caller := Principal(c).UID
		if caller == "" {
			caller = c.ClientIP()
		}
		key := fmt.Sprintf("endpoint:%s:%s", endpoint, caller)

		allowed, count, err := rl.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			services.NewLogger(c.Request.Context()).LogError("RateLimit", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			return
		}

		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(window).Unix()))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			return
		}

		c.Next()
	}
}
