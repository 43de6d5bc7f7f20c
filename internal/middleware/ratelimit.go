package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aims-admin/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware allows limit requests per window per route and client
// IP. With a redis client the counter is shared across instances; without
// one each process keeps token buckets in memory.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if rdb == nil {
		return localLimiter(limit, window)
	}
	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("rl:%s:%s", c.Path(), c.IP())

		ctx, cancel := context.WithTimeout(c.UserContext(), 500*time.Millisecond)
		defer cancel()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			return c.Next() // fail open
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			return tooMany(c, window)
		}

		return c.Next()
	}
}

func localLimiter(limit int, window time.Duration) fiber.Handler {
	buckets := newBucketSet(limit, window, time.Now)
	return func(c *fiber.Ctx) error {
		if !buckets.allow(c.Path() + "|" + c.IP()) {
			return tooMany(c, window)
		}
		return c.Next()
	}
}

// bucketSet holds one token bucket per key. A bucket untouched for a whole
// window has refilled to its burst and is indistinguishable from a new one,
// so such buckets are dropped on the next sweep.
type bucketSet struct {
	mu        sync.Mutex
	limit     int
	every     rate.Limit
	window    time.Duration
	now       func() time.Time
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newBucketSet(limit int, window time.Duration, now func() time.Time) *bucketSet {
	return &bucketSet{
		limit:     limit,
		every:     rate.Every(window / time.Duration(limit)),
		window:    window,
		now:       now,
		buckets:   make(map[string]*bucket),
		lastSweep: now(),
	}
}

func (s *bucketSet) allow(key string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.window {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) >= s.window {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(s.every, s.limit)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

func (s *bucketSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func tooMany(c *fiber.Ctx, window time.Duration) error {
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
	return dto.Fail(c, fiber.StatusTooManyRequests, "rate limit exceeded")
}
