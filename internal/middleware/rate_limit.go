package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimit caps attempts per email (or client IP when the body carries
// none) at maxPerMin per minute. Counters live in Redis when a client is
// given and in process otherwise. Redis errors fail open.
func RateLimit(name string, cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	local := newLocalLimiter(maxPerMin)
	return func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email" form:"email"`
		}
		_ = c.BodyParser(&req)
		subject := strings.ToLower(strings.TrimSpace(req.Email))
		if subject == "" {
			subject = c.IP()
		}

		if cache == nil {
			if !local.allow(subject) {
				return tooMany()
			}
			return c.Next()
		}

		cnt, err := countAttempt(c.UserContext(), cache, "rl:"+name+":"+subject)
		if err != nil {
			return c.Next()
		}
		if cnt > int64(maxPerMin) {
			return tooMany()
		}
		return c.Next()
	}
}

// countAttempt increments the per-minute counter at key. The window is
// created with SET NX EX in the same transaction as INCR, so a counter
// never exists without an expiry.
func countAttempt(ctx context.Context, cache *redis.Client, key string) (int64, error) {
	pipe := cache.TxPipeline()
	pipe.SetNX(ctx, key, 0, time.Minute)
	incr := pipe.Incr(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func tooMany() error {
	return fiber.NewError(http.StatusTooManyRequests, "too many attempts, try again later")
}

type localLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newLocalLimiter(perMin int) *localLimiter {
	return &localLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMin)),
		burst:    perMin,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *localLimiter) allow(subject string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[subject]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[subject] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
