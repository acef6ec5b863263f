package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRateLimit(t *testing.T) {
	rdb := testRedis(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	rl := NewRateLimiter(rdb, WithBucketSize(3), WithRefillRate(1))
	router.Use(rl.RateLimit())
	router.POST("/payments/generate-token", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payments/generate-token", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		router.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 3; i++ {
		w := do()
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}

	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// A full second of refill restores a token.
	time.Sleep(1100 * time.Millisecond)
	w = do()
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitPerClient(t *testing.T) {
	rdb := testRedis(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	rl := NewRateLimiter(rdb, WithBucketSize(1), WithRefillRate(1))
	router.Use(rl.RateLimit())
	router.POST("/contact", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	do := func(addr string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/contact", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("192.168.1.1:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, do("192.168.1.1:1001").Code)
	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, do("192.168.1.2:1000").Code)
}

func TestRateLimiterOptions(t *testing.T) {
	rl := NewRateLimiter(nil, WithBucketSize(200), WithRefillRate(20))
	assert.Equal(t, 200, rl.bucketSize)
	assert.Equal(t, 20, rl.refillRate)
}
