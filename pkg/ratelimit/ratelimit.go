package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Burst() int
}

// KeyedTokenBucketLimiter keeps one token bucket per key.
type KeyedTokenBucketLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewKeyedTokenBucketLimiter(rps float64, burst int) *KeyedTokenBucketLimiter {
	return &KeyedTokenBucketLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

func (l *KeyedTokenBucketLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}

func (l *KeyedTokenBucketLimiter) Burst() int {
	return l.burst
}

// RedisRateLimiter is a fixed window counter shared by every replica.
type RedisRateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		redis:  client,
		limit:  limit,
		window: window,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixNano() / int64(r.window)
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	pipe := r.redis.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	return incr.Val() <= int64(r.limit), nil
}

func (r *RedisRateLimiter) Burst() int {
	return r.limit
}

// Middleware rejects requests over the limit with 429. Limiter errors let the
// request through.
func Middleware(limiter RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" {
			key = c.ClientIP()
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")

			problem := problems.NewStatusProblem(http.StatusTooManyRequests).
				WithInstance(c.Request.URL.Path).
				WithType("rate_limited").
				WithDetail("too many requests, please try again later")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, problem)
			return
		}

		c.Next()
	}
}

// IPKeyFunc keys by client IP and route so that login and register have
// separate budgets.
func IPKeyFunc(c *gin.Context) string {
	return c.ClientIP() + ":" + c.FullPath()
}
