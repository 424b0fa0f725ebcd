package content

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"example.com/aievents/internal/domain"
)

type (
	Cache interface {
		Get(string) ([]domain.Event, bool)
		Set(string, []domain.Event, time.Duration)
	}

	InMemoryCache struct {
		cache *ristretto.Cache
	}

	noCache struct{}
)

const bufferItems = 64

// NewInMemoryCache keeps up to maxEntries listings; every listing costs 1.
func NewInMemoryCache(maxEntries int64) (*InMemoryCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: bufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	return &InMemoryCache{cache: c}, nil
}

func (c *InMemoryCache) Get(key string) ([]domain.Event, bool) {
	i, f := c.cache.Get(key)
	if !f {
		return nil, false
	}

	v, ok := i.([]domain.Event)
	if !ok {
		return nil, false
	}

	return v, true
}

func (c *InMemoryCache) Set(key string, value []domain.Event, expiry time.Duration) {
	_ = c.cache.SetWithTTL(key, value, 1, expiry)
}

// Wait blocks until buffered writes are applied.
func (c *InMemoryCache) Wait() { c.cache.Wait() }

func (c *InMemoryCache) Close() { c.cache.Close() }

func (noCache) Get(string) ([]domain.Event, bool)        { return nil, false }
func (noCache) Set(string, []domain.Event, time.Duration) {}
