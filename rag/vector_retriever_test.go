package rag

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/travelrag/llm/retry"
	"github.com/BaSui01/travelrag/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVectorRetriever_Search(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float64{0.1, 0.2}}
	index := &fakeIndex{matches: []Match{
		{ID: "b", Score: 0.5},
		{ID: "a", Score: 0.9},
		{ID: "c", Score: 0.7},
	}}
	r := NewVectorRetriever(embedder, index, nil, nil, zap.NewNop())

	matches, err := r.Search(context.Background(), "pho", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "c", matches[1].ID)

	require.Len(t, index.queries, 1)
	assert.Equal(t, 2, index.queries[0].TopK)
	assert.True(t, index.queries[0].IncludeMetadata)
	assert.Equal(t, []float64{0.1, 0.2}, index.queries[0].Vector)
}

func TestVectorRetriever_InvalidK(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float64{1}}
	r := NewVectorRetriever(embedder, &fakeIndex{}, nil, nil, nil)

	_, err := r.Search(context.Background(), "pho", 0)
	assert.True(t, types.IsCode(err, types.ErrInvalidRequest))
	assert.Zero(t, embedder.calls.Load())
}

func TestVectorRetriever_EmbeddingFailurePassesThrough(t *testing.T) {
	embedErr := types.NewError(types.ErrEmbeddingProvider, "down")
	index := &fakeIndex{}
	r := NewVectorRetriever(&fakeEmbedder{err: embedErr}, index, nil, nil, nil)

	_, err := r.Search(context.Background(), "pho", 3)
	assert.Same(t, embedErr, err)
	assert.Empty(t, index.queries)
}

func TestVectorRetriever_IndexFailureBecomesRetrieval(t *testing.T) {
	index := &fakeIndex{err: types.NewError(types.ErrUpstreamError, "503").WithProvider("pinecone")}
	r := NewVectorRetriever(&fakeEmbedder{vec: []float64{1}}, index, nil, nil, nil)

	_, err := r.Search(context.Background(), "pho", 3)
	require.Error(t, err)
	assert.Equal(t, types.ErrRetrieval, types.GetErrorCode(err))
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "pinecone", e.Provider)
}

func TestVectorRetriever_RetriesRetryableIndexErrors(t *testing.T) {
	index := &fakeIndex{
		errs:    []error{types.NewError(types.ErrRateLimited, "429").WithRetryable(true)},
		matches: []Match{{ID: "a", Score: 1}},
	}
	retryer := retry.NewBackoffRetryer(&retry.RetryPolicy{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}, zap.NewNop())
	r := NewVectorRetriever(&fakeEmbedder{vec: []float64{1}}, index, retryer, nil, nil)

	matches, err := r.Search(context.Background(), "pho", 3)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Len(t, index.queries, 2)
}

func TestVectorRetriever_DoesNotRetryPermanentErrors(t *testing.T) {
	index := &fakeIndex{err: types.NewError(types.ErrUnauthorized, "401")}
	retryer := retry.NewBackoffRetryer(&retry.RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond}, nil)
	r := NewVectorRetriever(&fakeEmbedder{vec: []float64{1}}, index, retryer, nil, nil)

	_, err := r.Search(context.Background(), "pho", 3)
	assert.True(t, types.IsCode(err, types.ErrRetrieval))
	assert.Len(t, index.queries, 1)
}
