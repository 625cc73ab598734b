package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimiter is a fixed-window request counter per client IP kept in Redis
type RateLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	logger zerolog.Logger
}

// NewRateLimiter allows limit requests per window. A non-positive limit
// disables limiting.
func NewRateLimiter(client redis.UniversalClient, limit int, window time.Duration, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger.With().Str("component", "ratelimit").Logger(),
	}
}

func rateLimitKey(ip string) string { return "ratelimit:" + ip }

// Middleware returns the gin handler. Redis failures let the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := rateLimitKey(c.ClientIP())

		pipe := rl.client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		ttl := pipe.TTL(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			rl.logger.Warn().Err(err).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		wait := ttl.Val()
		if wait < 0 {
			// first hit of the window, or a key left without expiry
			wait = rl.window
			if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
				rl.logger.Warn().Err(err).Msg("failed to set rate limit window")
			}
		}

		count := incr.Val()
		remaining := int64(rl.limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.limit) {
			c.Header("Retry-After", strconv.Itoa(int(wait.Round(time.Second).Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests, please try again later.",
			})
			return
		}
		c.Next()
	}
}
