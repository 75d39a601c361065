package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/utils/cache"
	"github.com/prepnest/prepnest-api/utils/response"
)

const (
	maxLoginAttempts = 10
	attemptWindow    = 15 * time.Minute
)

// BruteForceProtection throttles repeated login attempts per client IP
// using Redis counters.
type BruteForceProtection struct {
	cache *cache.RedisCache
}

// NewBruteForceProtection creates the protection middleware
func NewBruteForceProtection(cache *cache.RedisCache) *BruteForceProtection {
	return &BruteForceProtection{cache: cache}
}

// CheckAndRecordAttempt blocks the request once the attempt budget for the
// window is exhausted
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("login_attempts:%s", c.IP())

		count, err := b.cache.Incr(c.Context(), key)
		if err != nil {
			// Redis down: let the request through rather than lock everyone out
			return c.Next()
		}

		if count == 1 {
			_ = b.cache.Expire(c.Context(), key, attemptWindow)
		}

		if count > maxLoginAttempts {
			return response.Error(c, fiber.StatusTooManyRequests,
				"Too many login attempts. Please try again later.", "TOO_MANY_ATTEMPTS")
		}

		return c.Next()
	}
}

// Reset clears the attempt counter after a successful login
func (b *BruteForceProtection) Reset(c *fiber.Ctx) {
	key := fmt.Sprintf("login_attempts:%s", c.IP())
	_ = b.cache.Delete(c.Context(), key)
}
