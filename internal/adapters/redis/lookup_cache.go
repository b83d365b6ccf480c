package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LookupCache stores serialized lookup results in Redis so repeated runs in
// a short window reuse a recent answer instead of hitting the source site
// again. It satisfies the sources.LookupCache interface; a miss is reported
// as (nil, nil), never as an error.
type LookupCache struct {
	client redis.UniversalClient
}

// NewLookupCache returns a Redis-backed lookup cache.
func NewLookupCache(client redis.UniversalClient) *LookupCache {
	return &LookupCache{client: client}
}

// Get retrieves a cached payload. Unknown keys return (nil, nil).
func (c *LookupCache) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	result, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return []byte(result), nil
}

// Set stores a payload under key for the given TTL.
func (c *LookupCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}
