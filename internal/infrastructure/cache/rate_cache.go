// Package cache provides a read-through cache in front of a RateStore
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/repository"
)

// CacheEntry represents a cached exchange rate with its load time
type CacheEntry struct {
	Rate      entity.ExchangeRate
	Timestamp time.Time
}

// CachedRateStore serves FindLatest from memory for up to the expiration.
// Only hits are cached; a miss always reaches the underlying store.
//
// Every completed upsert bumps the pair's generation. A load that started under
// an older generation returns its row but does not cache it, so a row read
// before an upsert is never served after that upsert returns.
type CachedRateStore struct {
	store       repository.RateStore
	cache       map[string]CacheEntry
	generations map[string]uint64
	expiration  time.Duration
	now         func() time.Time
	mutex       sync.RWMutex
}

// NewCachedRateStore wraps store with a cache whose entries live for expiration
func NewCachedRateStore(store repository.RateStore, expiration time.Duration) *CachedRateStore {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &CachedRateStore{
		store:       store,
		cache:       make(map[string]CacheEntry),
		generations: make(map[string]uint64),
		expiration:  expiration,
		now:         time.Now,
	}
}

func pairKey(base, target string) string {
	return base + ":" + target
}

// FindLatest returns the cached rate or loads it from the store
func (c *CachedRateStore) FindLatest(ctx context.Context, base, target string) (*entity.ExchangeRate, error) {
	key := pairKey(base, target)

	c.mutex.RLock()
	entry, exists := c.cache[key]
	generation := c.generations[key]
	c.mutex.RUnlock()

	if exists && c.now().Sub(entry.Timestamp) <= c.expiration {
		rate := entry.Rate
		return &rate, nil
	}

	rate, err := c.store.FindLatest(ctx, base, target)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	if c.generations[key] == generation {
		c.cache[key] = CacheEntry{Rate: *rate, Timestamp: c.now()}
	}
	c.mutex.Unlock()

	return rate, nil
}

// UpsertRate writes through to the store, then drops the cached pair and
// invalidates loads still in flight
func (c *CachedRateStore) UpsertRate(ctx context.Context, rate *entity.ExchangeRate) error {
	err := c.store.UpsertRate(ctx, rate)

	key := pairKey(rate.Base, rate.Target)
	c.mutex.Lock()
	delete(c.cache, key)
	c.generations[key]++
	c.mutex.Unlock()

	return err
}

// ListRates always reads the underlying store
func (c *CachedRateStore) ListRates(ctx context.Context, base string) ([]entity.ExchangeRate, error) {
	return c.store.ListRates(ctx, base)
}

// CleanExpired removes expired entries from the cache
func (c *CachedRateStore) CleanExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	count := 0
	now := c.now()

	for key, entry := range c.cache {
		if now.Sub(entry.Timestamp) > c.expiration {
			delete(c.cache, key)
			count++
		}
	}

	return count
}

// StartJanitor calls CleanExpired every interval until ctx is done
func (c *CachedRateStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.expiration
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.CleanExpired()
			}
		}
	}()
}
