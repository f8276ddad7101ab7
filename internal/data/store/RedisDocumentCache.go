package store

import (
	"context"
	"time"

	"github.com/akolanti/DocWatch/internal/config"
	"github.com/akolanti/DocWatch/internal/data/redisStore"
)

type RedisDocumentCache struct {
	redisStore *redisStore.Store
	ttl        time.Duration
}

func NewRedisDocumentCache(s *redisStore.Store) *RedisDocumentCache {
	return &RedisDocumentCache{
		redisStore: s,
		ttl:        config.RedisDocumentCacheTTL,
	}
}

func (r *RedisDocumentCache) Invalidate(ctx context.Context, key string) error {
	return r.redisStore.Del(ctx, key)
}

func (r *RedisDocumentCache) SetValue(ctx context.Context, key string, value []byte) error {
	return r.redisStore.Set(ctx, key, value, r.ttl)
}

func (r *RedisDocumentCache) GetValue(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.redisStore.Get(ctx, key)
	if r.redisStore.IsNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(val), true, nil
}
