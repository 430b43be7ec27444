package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultProductMissTTL = 5 * time.Minute

// ProductMissCache remembers product ids that resolved to nothing. Ids are
// generated server side and never reused, so a miss stays a miss and the
// entries only need to expire to bound memory.
type ProductMissCache interface {
	Known(ctx context.Context, id string) (bool, error)
	Remember(ctx context.Context, id string) error
}

type noopProductMissCache struct{}

func (noopProductMissCache) Known(context.Context, string) (bool, error) { return false, nil }
func (noopProductMissCache) Remember(context.Context, string) error      { return nil }

type InMemoryProductMissCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewInMemoryProductMissCache(ttl time.Duration) *InMemoryProductMissCache {
	if ttl <= 0 {
		ttl = defaultProductMissTTL
	}
	return &InMemoryProductMissCache{entries: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (c *InMemoryProductMissCache) Known(_ context.Context, id string) (bool, error) {
	now := c.now()
	c.mu.RLock()
	expiresAt, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !now.Before(expiresAt) {
		c.mu.Lock()
		if current, still := c.entries[id]; still && !now.Before(current) {
			delete(c.entries, id)
		}
		c.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (c *InMemoryProductMissCache) Remember(_ context.Context, id string) error {
	c.mu.Lock()
	c.entries[id] = c.now().Add(c.ttl)
	c.mu.Unlock()
	return nil
}

type RedisProductMissCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisProductMissCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisProductMissCache {
	if prefix == "" {
		prefix = "product_miss"
	}
	if ttl <= 0 {
		ttl = defaultProductMissTTL
	}
	return &RedisProductMissCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisProductMissCache) Known(ctx context.Context, id string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisProductMissCache) Remember(ctx context.Context, id string) error {
	return c.client.Set(ctx, c.key(id), "1", c.ttl).Err()
}

func (c *RedisProductMissCache) key(id string) string { return c.prefix + ":" + id }
