package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	defaultBucketSize = 20 // maximum tokens per client
	defaultRefillRate = 2  // tokens per second
	bucketTTLSeconds  = 60
)

// RateLimiter implements a per-client token bucket in Redis. Applied to the
// abuse-prone endpoints (token issuance, contact mail); webhooks are exempt
// because the provider controls their rate.
type RateLimiter struct {
	rdb        *redis.Client
	bucketSize int
	refillRate int
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithBucketSize sets the maximum burst size.
func WithBucketSize(size int) RateLimiterOption {
	return func(rl *RateLimiter) {
		if size > 0 {
			rl.bucketSize = size
		}
	}
}

// WithRefillRate sets the sustained tokens-per-second rate.
func WithRefillRate(rate int) RateLimiterOption {
	return func(rl *RateLimiter) {
		if rate > 0 {
			rl.refillRate = rate
		}
	}
}

func NewRateLimiter(rdb *redis.Client, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		rdb:        rdb,
		bucketSize: defaultBucketSize,
		refillRate: defaultRefillRate,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// RateLimit returns a middleware enforcing the token bucket keyed by client IP.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s", c.ClientIP())
		bucketKey := key + ":bucket"
		lastUpdateKey := key + ":last_update"
		now := time.Now().Unix()

		tokens, err := rl.rdb.Get(c, bucketKey).Int()
		if err == redis.Nil {
			tokens = rl.bucketSize
		} else if err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(500, gin.H{"error": "rate limit check failed"})
			return
		}

		lastUpdate, err := rl.rdb.Get(c, lastUpdateKey).Int64()
		if err == redis.Nil {
			lastUpdate = now
		} else if err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(500, gin.H{"error": "rate limit check failed"})
			return
		}

		refill := int(now-lastUpdate) * rl.refillRate
		tokens = min(tokens+refill, rl.bucketSize)

		if tokens <= 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.bucketSize))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(1))
			c.AbortWithStatusJSON(429, gin.H{"error": "rate limit exceeded"})
			return
		}

		tokens--
		pipe := rl.rdb.TxPipeline()
		pipe.Set(c, bucketKey, tokens, bucketTTLSeconds*time.Second)
		pipe.Set(c, lastUpdateKey, now, bucketTTLSeconds*time.Second)
		if _, err := pipe.Exec(c); err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(500, gin.H{"error": "rate limit update failed"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.bucketSize))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(tokens))
		c.Next()
	}
}
