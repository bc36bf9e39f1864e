package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/claimgate/internal/cache"
)

// CachedRetriever wraps a Retriever with a read-through result cache.
// Policy documents change rarely, so cached hits are safe for the TTL window.
type CachedRetriever struct {
	inner Retriever
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedRetriever decorates inner with the given cache
func NewCachedRetriever(inner Retriever, c cache.Cache, ttl time.Duration) *CachedRetriever {
	return &CachedRetriever{
		inner: inner,
		cache: c,
		ttl:   ttl,
	}
}

// Search serves cached results when present, delegating misses to the store
func (r *CachedRetriever) Search(ctx context.Context, query string, topK int) ([]string, error) {
	key := cache.Key(query, topK)

	if data, found := r.cache.Get(key); found {
		var results []string
		if err := json.Unmarshal(data, &results); err == nil {
			return results, nil
		}
		// Corrupt entry: drop it and fall through to the store
		_ = r.cache.Delete(key)
	}

	results, err := r.inner.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(results); err == nil {
		_ = r.cache.Set(key, data, r.ttl)
	}
	return results, nil
}
