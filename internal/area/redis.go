package area

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates the document is not in the shared cache.
var ErrCacheMiss = errors.New("area document not cached")

// RedisCache is a shared document cache in front of the geometry endpoints.
// Multiple observer instances loading the same event hit the geometry host
// once instead of once per instance.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed document cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(url string) string {
	return "area:doc:" + url
}

// Get retrieves a cached document by source URL.
func (c *RedisCache) Get(ctx context.Context, url string) (*Document, error) {
	data, err := c.client.Get(ctx, cacheKey(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("reading area cache: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		// A corrupt entry behaves like a miss so the fetch path repairs it.
		return nil, ErrCacheMiss
	}
	return &doc, nil
}

// Set stores a document under its source URL.
func (c *RedisCache) Set(ctx context.Context, url string, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding area document: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(url), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing area cache: %w", err)
	}
	return nil
}
