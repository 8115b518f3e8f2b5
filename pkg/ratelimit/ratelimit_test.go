package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedTokenBucketLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := NewKeyedTokenBucketLimiter(0.001, 2)

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, _ := limiter.Allow(ctx, "a")
	assert.False(t, ok, "third request within burst window")

	ok, _ = limiter.Allow(ctx, "b")
	assert.True(t, ok, "keys have independent buckets")
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	limiter := NewRedisRateLimiter(client, 2, time.Hour)

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auth/login", Middleware(NewKeyedTokenBucketLimiter(0.001, 1), IPKeyFunc), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
}
