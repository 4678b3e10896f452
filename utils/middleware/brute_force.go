package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/cache"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
)

const attemptWindow = 15 * time.Minute

// lockoutAfter maps a failed-attempt count to the block it triggers, largest first.
var lockoutAfter = []struct {
	attempts int64
	block    time.Duration
}{
	{25, 24 * time.Hour},
	{10, time.Hour},
	{5, 2 * time.Minute},
}

// BruteForceProtection blocks an IP after repeated failed logins. A nil
// receiver or a missing cache disables it.
type BruteForceProtection struct {
	redisCache *cache.RedisCache
}

func NewBruteForceProtection(redisCache *cache.RedisCache) *BruteForceProtection {
	return &BruteForceProtection{redisCache: redisCache}
}

func (b *BruteForceProtection) enabled() bool {
	return b != nil && b.redisCache != nil
}

func attemptKey(ip string) string { return "login:attempts:" + ip }
func blockKey(ip string) string   { return "login:block:" + ip }

// CheckAndRecordAttempt rejects logins from a blocked IP with 429
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !b.enabled() {
			return c.Next()
		}

		remaining, err := b.redisCache.BlockedFor(c.UserContext(), blockKey(c.IP()))
		if err != nil || remaining <= 0 {
			// redis trouble must not block legitimate users
			return c.Next()
		}

		retryAfter := int(remaining.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return response.TooManyRequests(c, "Too many failed attempts. Try again in "+strconv.Itoa(retryAfter)+" seconds")
	}
}

// RecordFailedAttempt counts a failed login and applies progressive blocks
func (b *BruteForceProtection) RecordFailedAttempt(c *fiber.Ctx) error {
	if !b.enabled() {
		return nil
	}
	ctx := c.UserContext()

	attempts, err := b.redisCache.CountAttempt(ctx, attemptKey(c.IP()), attemptWindow)
	if err != nil {
		return nil
	}

	for _, step := range lockoutAfter {
		if attempts >= step.attempts {
			return b.redisCache.Block(ctx, blockKey(c.IP()), step.block)
		}
	}
	return nil
}

// RecordSuccessfulAttempt clears the counter and any block
func (b *BruteForceProtection) RecordSuccessfulAttempt(c *fiber.Ctx) error {
	if !b.enabled() {
		return nil
	}
	return b.redisCache.Clear(c.UserContext(), attemptKey(c.IP()), blockKey(c.IP()))
}
