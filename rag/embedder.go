package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/travelrag/internal/metrics"
	"github.com/BaSui01/travelrag/llm/embedding"
	"github.com/BaSui01/travelrag/types"
	"go.uber.org/zap"
)

// Embedder 将文本转换为固定维度的向量
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// CachedEmbedderConfig 配置 CachedEmbedder
type CachedEmbedderConfig struct {
	// Dimensions 期望的向量维度，必须与向量索引一致；0 表示不校验
	Dimensions int
	// CacheType 用于指标标签：memory、redis、sql
	CacheType string
}

// CachedEmbedder 先查缓存，未命中时调用一次嵌入服务并写回缓存。
// 组件内部不重试。
type CachedEmbedder struct {
	provider embedding.Provider
	cache    EmbeddingCache
	cfg      CachedEmbedderConfig
	metrics  metrics.Recorder
	logger   *zap.Logger
}

// NewCachedEmbedder 创建带缓存的嵌入器；cache 为 nil 时使用内存缓存
func NewCachedEmbedder(provider embedding.Provider, cache EmbeddingCache, cfg CachedEmbedderConfig, recorder metrics.Recorder, logger *zap.Logger) *CachedEmbedder {
	if cache == nil {
		cache = NewMemoryEmbeddingCache()
		if cfg.CacheType == "" {
			cfg.CacheType = "memory"
		}
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		metrics:  recorder,
		logger:   logger.With(zap.String("component", "embedder")),
	}
}

// Embed 返回文本的嵌入向量。
// 缓存故障只记录日志并视为未命中；嵌入服务失败或维度不符时返回 EMBEDDING_PROVIDER 错误。
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	fp := Fingerprint(text)

	vec, ok, err := e.cache.Get(ctx, fp)
	if err != nil {
		e.logger.Warn("embedding cache lookup failed, treating as miss",
			zap.String("fingerprint", fp), zap.Error(err))
	}
	if ok && err == nil {
		if e.cfg.Dimensions <= 0 || len(vec) == e.cfg.Dimensions {
			e.metrics.RecordCacheLookup(e.cfg.CacheType, true)
			return vec, nil
		}
		e.logger.Warn("cached embedding has wrong dimension, refreshing",
			zap.String("fingerprint", fp),
			zap.Int("got", len(vec)),
			zap.Int("want", e.cfg.Dimensions))
	}
	e.metrics.RecordCacheLookup(e.cfg.CacheType, false)

	start := time.Now()
	vec, err = e.provider.EmbedQuery(ctx, text)
	if err != nil {
		e.metrics.RecordProviderRequest(e.provider.Name(), "embed", "error", time.Since(start))
		return nil, types.Wrap(err, types.ErrEmbeddingProvider, "embedding provider failed").
			WithProvider(e.provider.Name())
	}
	e.metrics.RecordProviderRequest(e.provider.Name(), "embed", "success", time.Since(start))

	if e.cfg.Dimensions > 0 && len(vec) != e.cfg.Dimensions {
		return nil, types.NewError(types.ErrEmbeddingProvider,
			fmt.Sprintf("embedding dimension mismatch: got %d, want %d", len(vec), e.cfg.Dimensions)).
			WithProvider(e.provider.Name())
	}

	if err := e.cache.Put(ctx, fp, vec); err != nil {
		e.logger.Warn("embedding cache write failed", zap.String("fingerprint", fp), zap.Error(err))
	}
	return vec, nil
}
