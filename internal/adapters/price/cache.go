package price

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/agentdesk/agentdesk/internal/core/domain"
)

// CachedService memoizes another PriceService for ttl
type CachedService struct {
	next  domain.PriceService
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCachedService wraps next with a small in-memory cache
func NewCachedService(next domain.PriceService, ttl time.Duration) (*CachedService, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create price cache: %w", err)
	}
	return &CachedService{next: next, cache: cache, ttl: ttl}, nil
}

func (c *CachedService) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	key := strings.ToUpper(symbol)
	if v, ok := c.cache.Get(key); ok {
		if price, ok := v.(float64); ok {
			return price, nil
		}
	}

	price, err := c.next.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	c.cache.SetWithTTL(key, price, 1, c.ttl)
	c.cache.Wait()
	return price, nil
}

// Invalidate drops the cached price of symbol
func (c *CachedService) Invalidate(symbol string) {
	c.cache.Del(strings.ToUpper(symbol))
}

// Close releases the cache's goroutines
func (c *CachedService) Close() {
	c.cache.Close()
}
