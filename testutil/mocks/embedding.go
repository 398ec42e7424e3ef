package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/BaSui01/travelrag/llm/embedding"
)

// MockEmbeddingProvider 是 embedding.Provider 的模拟实现。
// 默认向量由文本字节确定性生成，相同文本总是得到相同向量。
type MockEmbeddingProvider struct {
	mu sync.RWMutex

	dimensions int
	err        error
	vectors    map[string][]float64
	queries    []string
}

// NewMockEmbeddingProvider 创建指定维度的模拟嵌入服务
func NewMockEmbeddingProvider(dimensions int) *MockEmbeddingProvider {
	return &MockEmbeddingProvider{
		dimensions: dimensions,
		vectors:    make(map[string][]float64),
	}
}

// WithError 设置返回错误
func (m *MockEmbeddingProvider) WithError(err error) *MockEmbeddingProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithVector 为指定文本预设向量，可用于制造维度不符
func (m *MockEmbeddingProvider) WithVector(text string, vec []float64) *MockEmbeddingProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[text] = vec
	return m
}

func (m *MockEmbeddingProvider) Name() string    { return "mock-embedding" }
func (m *MockEmbeddingProvider) Dimensions() int { return m.dimensions }

// Embed 实现 embedding.Provider
func (m *MockEmbeddingProvider) Embed(ctx context.Context, req *embedding.EmbeddingRequest) (*embedding.EmbeddingResponse, error) {
	if req == nil || len(req.Input) == 0 {
		return nil, errors.New("mock embedding: empty input")
	}
	resp := &embedding.EmbeddingResponse{Provider: m.Name(), Model: "mock"}
	for i, text := range req.Input {
		vec, err := m.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		resp.Embeddings = append(resp.Embeddings, embedding.EmbeddingData{Index: i, Embedding: vec})
	}
	return resp, nil
}

// EmbedQuery 实现 embedding.Provider
func (m *MockEmbeddingProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	if vec, ok := m.vectors[query]; ok {
		return append([]float64(nil), vec...), nil
	}
	return deterministicVector(query, m.dimensions), nil
}

// CallCount 返回 EmbedQuery 调用次数
func (m *MockEmbeddingProvider) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queries)
}

// Queries 返回收到的全部查询
func (m *MockEmbeddingProvider) Queries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.queries...)
}

func deterministicVector(text string, dims int) []float64 {
	if dims <= 0 {
		return []float64{}
	}
	vec := make([]float64, dims)
	for i, b := range []byte(text) {
		vec[i%dims] += float64(b) / 255
	}
	for i := range vec {
		vec[i] += float64(i) * 1e-3
	}
	return vec
}
