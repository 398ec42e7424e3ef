package rag

import (
	"context"
	"sort"
	"time"

	"github.com/BaSui01/travelrag/internal/metrics"
	"github.com/BaSui01/travelrag/llm/retry"
	"github.com/BaSui01/travelrag/types"
	"go.uber.org/zap"
)

// VectorRetriever 嵌入查询并在向量索引中取 top-K
type VectorRetriever struct {
	embedder Embedder
	index    VectorIndex
	retryer  retry.Retryer
	metrics  metrics.Recorder
	logger   *zap.Logger

	indexName string
}

// NewVectorRetriever 创建检索器；retryer 为 nil 时不重试
func NewVectorRetriever(embedder Embedder, index VectorIndex, retryer retry.Retryer, recorder metrics.Recorder, logger *zap.Logger) *VectorRetriever {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorRetriever{
		embedder:  embedder,
		index:     index,
		retryer:   retryer,
		metrics:   recorder,
		logger:    logger.With(zap.String("component", "vector_retriever")),
		indexName: pineconeProvider,
	}
}

// Search 返回与 query 最相似的至多 k 个匹配，按分数降序
func (r *VectorRetriever) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if k < 1 {
		return nil, types.NewError(types.ErrInvalidRequest, "top_k must be at least 1")
	}

	vec, err := r.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	return r.SearchVector(ctx, vec, k)
}

// Embed 按重试策略嵌入查询，错误原样返回
func (r *VectorRetriever) Embed(ctx context.Context, query string) ([]float64, error) {
	return retry.DoWithResult(ctx, r.retryer, func() ([]float64, error) {
		return r.embedder.Embed(ctx, query)
	})
}

// SearchVector 用已有的查询向量检索，供已并发完成嵌入的调用方使用
func (r *VectorRetriever) SearchVector(ctx context.Context, vec []float64, k int) ([]Match, error) {
	if k < 1 {
		return nil, types.NewError(types.ErrInvalidRequest, "top_k must be at least 1")
	}

	start := time.Now()
	matches, err := retry.DoWithResult(ctx, r.retryer, func() ([]Match, error) {
		return r.index.Query(ctx, VectorQuery{Vector: vec, TopK: k, IncludeMetadata: true})
	})
	if err != nil {
		r.metrics.RecordProviderRequest(r.indexName, "query", "error", time.Since(start))
		return nil, types.Wrap(err, types.ErrRetrieval, "vector index query failed")
	}
	r.metrics.RecordProviderRequest(r.indexName, "query", "success", time.Since(start))

	// 索引通常已排序，这里不依赖它
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}

	r.logger.Debug("vector search completed", zap.Int("k", k), zap.Int("matches", len(matches)))
	return matches, nil
}
