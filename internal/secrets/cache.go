package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spa542/brawnyoriginals/internal/models"
	"go.uber.org/zap"
)

// DefaultTTL is how long a fetched secret set is served before the next Get
// triggers a refresh.
const DefaultTTL = 24 * time.Hour

// Fetcher retrieves the full secret set from the remote store in one call.
type Fetcher interface {
	FetchSecrets(ctx context.Context) (map[string]string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) (map[string]string, error)

func (f FetcherFunc) FetchSecrets(ctx context.Context) (map[string]string, error) {
	return f(ctx)
}

// Cache is a TTL-bounded in-memory store of provider secrets. All tracked
// secrets are refreshed together; a failed refresh falls back to the last
// known values so a transient store outage does not take down token issuance.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger

	mu        sync.Mutex
	values    map[string]string
	fetchedAt time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the cache's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithTTL overrides the default refresh interval.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

func NewCache(fetcher Fetcher, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the current value of the named secret, refreshing the whole
// secret set first if the cache is empty or older than the TTL.
//
// The mutex spans the refresh-and-swap, so exactly one refresh runs even when
// many callers observe an expired cache at once; the rest block and then read
// the freshly swapped set without fetching again.
func (c *Cache) Get(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.values == nil || c.now().Sub(c.fetchedAt) > c.ttl {
		values, err := c.fetcher.FetchSecrets(ctx)
		if err != nil {
			if c.values == nil {
				return "", fmt.Errorf("%w: %v", models.ErrSecretUnavailable, err)
			}
			// Stale-but-available: keep serving the previous set.
			c.logger.Warn("secret refresh failed, serving stale values",
				zap.Time("fetched_at", c.fetchedAt),
				zap.Error(err))
		} else {
			c.values = values
			c.fetchedAt = c.now()
			c.logger.Info("secret cache refreshed", zap.Int("count", len(values)))
		}
	}

	value, ok := c.values[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrSecretNotFound, name)
	}
	return value, nil
}
