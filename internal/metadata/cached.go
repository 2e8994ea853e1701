package metadata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/logger"
)

// Source is anything that can resolve full metadata for a source URL.
type Source interface {
	Resolve(ctx context.Context, sourceURL string) (*domain.Metadata, error)
}

// RedisCache caches resolved metadata in Redis. A nil client degrades to a
// no-op cache so the service runs without Redis configured.
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		log:    log.WithComponent("metadata-cache"),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*domain.Metadata, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	meta := &domain.Metadata{}
	if err := json.Unmarshal(raw, meta); err != nil {
		c.log.Warn("cache entry corrupt, discarding", "key", key, "error", err)
		return nil, false
	}
	return meta, true
}

func (c *RedisCache) Set(ctx context.Context, key string, meta *domain.Metadata) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}

// CachedResolver serves metadata from the cache before falling through to the
// provider chain. Stream URLs are pre-signed and short-lived, so they are
// stripped before caching; a cache hit serves descriptive fields only.
type CachedResolver struct {
	source Source
	cache  *RedisCache
}

func NewCachedResolver(source Source, cache *RedisCache) *CachedResolver {
	return &CachedResolver{source: source, cache: cache}
}

func (r *CachedResolver) Resolve(ctx context.Context, sourceURL string) (*domain.Metadata, error) {
	key := "metadata:" + sourceURL
	if meta, ok := r.cache.Get(ctx, key); ok {
		return meta, nil
	}

	meta, err := r.source.Resolve(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	cached := *meta
	cached.StreamURL = ""
	cached.StreamSize = 0
	r.cache.Set(ctx, key, &cached)

	return meta, nil
}
