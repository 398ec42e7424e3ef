package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/travelrag/internal/cache"
)

// DefaultRedisKeyPrefix 嵌入缓存在 Redis 中的键前缀
const DefaultRedisKeyPrefix = "travelrag:emb:"

// bytesStore 由 *cache.Manager 实现
type bytesStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte) error
}

// RedisEmbeddingCache 基于 Redis 的嵌入缓存，每条记录一次 SET，永不过期
type RedisEmbeddingCache struct {
	store  bytesStore
	prefix string
}

// NewRedisEmbeddingCache 创建 Redis 嵌入缓存；prefix 为空时使用 DefaultRedisKeyPrefix
func NewRedisEmbeddingCache(manager *cache.Manager, prefix string) *RedisEmbeddingCache {
	return newRedisEmbeddingCache(manager, prefix)
}

func newRedisEmbeddingCache(store bytesStore, prefix string) *RedisEmbeddingCache {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisEmbeddingCache{store: store, prefix: prefix}
}

func (c *RedisEmbeddingCache) Get(ctx context.Context, fingerprint string) ([]float64, bool, error) {
	raw, err := c.store.GetBytes(ctx, c.prefix+fingerprint)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis embedding cache get: %w", err)
	}
	vec, err := DecodeVector(raw)
	if err != nil {
		return nil, false, fmt.Errorf("redis embedding cache get %s: %w", fingerprint, err)
	}
	return vec, true, nil
}

func (c *RedisEmbeddingCache) Put(ctx context.Context, fingerprint string, vec []float64) error {
	if err := c.store.SetBytes(ctx, c.prefix+fingerprint, EncodeVector(vec)); err != nil {
		return fmt.Errorf("redis embedding cache put: %w", err)
	}
	return nil
}
