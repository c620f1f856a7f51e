package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/pkg/response"
)

// RateLimit returns a fixed-window per-client-IP limiter backed by Redis so
// the limit holds across server instances. Redis failures let the request
// through rather than taking the API down.
func RateLimit(client *redis.Client, requestsPerMinute int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if requestsPerMinute <= 0 {
			c.Next()
			return
		}
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), window)

		count, err := client.Incr(c.Request.Context(), key).Result()
		if err != nil {
			logger.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(c.Request.Context(), key, time.Minute)
		}
		if count > int64(requestsPerMinute) {
			response.TooManyRequests(c, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
