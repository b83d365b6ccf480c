package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// LookupCache stores successful lookup results for a short window so
// back-to-back runs do not hammer source sites. The cache is advisory only:
// misses and cache errors fall through to a live lookup, and nothing
// correctness-sensitive may read from it.
type LookupCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// cachedVerifier wraps a Verifier with read-through caching of successful
// results. Failures are never cached; a transient outage should be retried on
// the next dispatch, not remembered.
type cachedVerifier struct {
	inner Verifier
	cache LookupCache
	ttl   time.Duration
}

func newCachedVerifier(inner Verifier, cache LookupCache, ttl time.Duration) *cachedVerifier {
	return &cachedVerifier{inner: inner, cache: cache, ttl: ttl}
}

// SourceID identifies the wrapped adapter's source.
func (c *cachedVerifier) SourceID() string { return c.inner.SourceID() }

// Lookup serves from cache when a fresh payload exists, otherwise performs a
// live lookup and stores the result.
func (c *cachedVerifier) Lookup(ctx context.Context, identity Identity) (*LookupResult, error) {
	key := lookupCacheKey(c.inner.SourceID(), identity)

	if cached, err := c.cache.Get(ctx, key); err == nil && len(cached) > 0 {
		var result LookupResult
		if unmarshalErr := json.Unmarshal(cached, &result); unmarshalErr == nil {
			return &result, nil
		}
	}

	result, err := c.inner.Lookup(ctx, identity)
	if err != nil {
		return nil, err
	}

	if encoded, marshalErr := json.Marshal(result); marshalErr == nil {
		// Best-effort: a cache write failure must not fail the lookup.
		_ = c.cache.Set(ctx, key, encoded, c.ttl)
	}
	return result, nil
}

func lookupCacheKey(sourceID string, identity Identity) string {
	return fmt.Sprintf("lookup:%s:%s", sourceID, identity.Number)
}
