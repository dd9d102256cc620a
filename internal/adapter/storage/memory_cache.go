package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/shop-orders/internal/port"
)

// sweepInterval bounds how often SetIdempotency scans for expired keys.
const sweepInterval = time.Minute

// MemoryCache is the single-process stand-in for RedisAdapter.
type MemoryCache struct {
	mu        sync.Mutex
	keys      map[string]time.Time
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		keys: make(map[string]time.Time),
		ttl:  idempotencyKeyTTL,
		now:  time.Now,
	}
}

var _ port.CacheRepository = (*MemoryCache)(nil)

func (c *MemoryCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= sweepInterval {
		c.sweep(now)
	}
	if exp, ok := c.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	c.keys[key] = now.Add(c.ttl)
	return true, nil
}

func (c *MemoryCache) ReleaseIdempotency(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.keys, key)
	return nil
}

func (c *MemoryCache) sweep(now time.Time) {
	for k, exp := range c.keys {
		if !now.Before(exp) {
			delete(c.keys, k)
		}
	}
	c.lastSweep = now
}
