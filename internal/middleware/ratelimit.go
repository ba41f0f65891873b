package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/postertrack/backend/internal/http/dto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitMiddleware counts requests per client ip and path in fixed windows. When
// redis is unavailable requests are let through.
func RateLimitMiddleware(rdb *redis.Client, prefix string, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || limit <= 0 {
			return c.Next()
		}
		key := fmt.Sprintf("rl:%s:%s:%s", prefix, c.Path(), c.IP())

		ctx := c.UserContext()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			return c.Next() // fail open
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			reqID := GetRequestID(c)
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error:     "rate limit exceeded",
				RequestID: reqID,
			})
		}

		return c.Next()
	}
}
