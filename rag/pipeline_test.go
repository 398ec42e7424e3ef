package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/travelrag/internal/ctxkeys"
	"github.com/BaSui01/travelrag/llm"
	"github.com/BaSui01/travelrag/testutil"
	"github.com/BaSui01/travelrag/testutil/mocks"
	"github.com/BaSui01/travelrag/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

type pipelineFixture struct {
	embedder  *fakeEmbedder
	index     *fakeIndex
	store     *fakeGraphStore
	generator *mocks.MockProvider
	cfg       PipelineConfig
}

func newPipelineFixture() *pipelineFixture {
	cfg := DefaultPipelineConfig()
	cfg.Model = "test-model"
	return &pipelineFixture{
		embedder: &fakeEmbedder{vec: []float64{0.1, 0.2, 0.3}},
		index: &fakeIndex{matches: []Match{
			{ID: "attraction_1", Score: 0.80, Metadata: map[string]any{"name": "Hoan Kiem Lake", "city": "Hanoi"}},
			{ID: "attraction_2", Score: 0.75, Metadata: map[string]any{"name": "Temple of Literature", "city": "Hanoi"}},
		}},
		store: &fakeGraphStore{neighbors: map[string][]Fact{
			"attraction_1": {{SourceID: "attraction_1", Relation: "NEAR", TargetID: "attraction_2", TargetName: "Temple of Literature", Description: "Confucian temple"}},
		}},
		generator: mocks.NewMockProvider().WithCompletionFunc(func(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
			if req.MaxTokens == 120 {
				return mocks.NewChatResponse(req.Model, "Two lakeside sights in central Hanoi."), nil
			}
			return mocks.NewChatResponse(req.Model, "Visit attraction_2 first, then walk to attraction_1."), nil
		}),
		cfg: cfg,
	}
}

func (f *pipelineFixture) build(t *testing.T) *Pipeline {
	t.Helper()
	retriever := NewVectorRetriever(f.embedder, f.index, nil, nil, zap.NewNop())
	enricher := NewGraphEnricher(f.store, newTestPool(t), GraphEnricherConfig{}, nil, zap.NewNop())
	p, err := NewPipeline(f.cfg, PipelineDeps{
		Retriever: retriever,
		Enricher:  enricher,
		Generator: f.generator,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)
	return p
}

func TestPipeline_Answer(t *testing.T) {
	f := newPipelineFixture()
	p := f.build(t)

	res, err := p.Answer(testutil.TestContext(t), "best things to see in Hanoi")
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, IntentRecommendation, res.Intent)
	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, "Visit attraction_2 first, then walk to attraction_1.", res.Answer)
	assert.Equal(t, "Two lakeside sights in central Hanoi.", res.Summary)
	assert.Empty(t, res.Degraded)
	assert.Nil(t, res.Failure)
	assert.False(t, res.GraphOnly)

	// 图谱引用的 attraction_2 被提升到第一
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "attraction_2", res.Matches[0].ID)
	assert.True(t, res.Matches[0].Boosted)
	require.Len(t, res.Facts, 1)

	// 非 verbose 不带上下文
	assert.Empty(t, res.Context)
	assert.Empty(t, res.Timings)

	calls := f.generator.GetCalls()
	require.Len(t, calls, 2)
	var answerReq *llm.ChatRequest
	for _, c := range calls {
		if c.Request.MaxTokens == 600 {
			answerReq = c.Request
		}
	}
	require.NotNil(t, answerReq)
	assert.Equal(t, "test-model", answerReq.Model)
	assert.Equal(t, res.ID, answerReq.TraceID)
	assert.Equal(t, SystemPrompt(IntentRecommendation), answerReq.Messages[0].Content)
	assert.Contains(t, answerReq.Messages[1].Content, "- attraction_2 | Temple of Literature | Hanoi")
	assert.Contains(t, answerReq.Messages[1].Content, "Intent: recommendation")
}

func TestPipeline_Verbose(t *testing.T) {
	f := newPipelineFixture()
	p := f.build(t)

	res, err := p.Answer(context.Background(), "plan a 4 day trip", WithVerbose(true))
	require.NoError(t, err)
	assert.Equal(t, IntentItinerary, res.Intent)
	assert.Contains(t, res.Context, matchesHeader)
	for _, stage := range []Stage{StageClassifying, StageRetrieving, StageEnriching, StageRanking, StageContextBuilding, StageGenerating} {
		assert.Contains(t, res.Timings, stage)
	}
}

func TestPipeline_DegradesOnRetrievalFailure(t *testing.T) {
	f := newPipelineFixture()
	f.index.err = types.NewError(types.ErrServiceUnavailable, "pinecone down")
	f.store.entities = []GraphEntity{{ID: "attraction_1"}}
	p := f.build(t)

	res, err := p.Answer(context.Background(), "what is pho")
	require.NoError(t, err)

	require.Len(t, res.Degraded, 1)
	assert.Equal(t, StageRetrieving, res.Degraded[0].Stage)
	assert.Equal(t, types.ErrRetrieval, res.Degraded[0].Code)
	assert.True(t, res.GraphOnly)
	assert.Empty(t, res.Matches)
	assert.Len(t, res.Facts, 1, "graph-only mode seeds from full-text search")
	assert.Equal(t, StageDone, res.Stage)
	assert.NotEmpty(t, res.Answer)
}

func TestPipeline_DegradesOnEmbeddingFailure(t *testing.T) {
	f := newPipelineFixture()
	f.embedder.err = types.NewError(types.ErrEmbeddingProvider, "openai down")
	p := f.build(t)

	res, err := p.Answer(context.Background(), "what is pho")
	require.NoError(t, err)
	require.Len(t, res.Degraded, 1)
	assert.Equal(t, types.ErrEmbeddingProvider, res.Degraded[0].Code)
	assert.Empty(t, f.index.queries)
}

func TestPipeline_EmptyIndexWithFactsReachesGeneration(t *testing.T) {
	f := newPipelineFixture()
	f.index.matches = nil
	f.store.entities = []GraphEntity{{ID: "city_hue"}}
	f.store.neighbors = map[string][]Fact{"city_hue": {
		{SourceID: "city_hue", Relation: "HAS", TargetID: "a", TargetName: "Imperial City", Description: "Citadel"},
		{SourceID: "city_hue", Relation: "HAS", TargetID: "b", TargetName: "Thien Mu Pagoda", Description: "Pagoda"},
	}}
	var prompt string
	f.generator = mocks.NewMockProvider().WithCompletionFunc(func(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
		prompt = req.Messages[1].Content
		return mocks.NewChatResponse(req.Model, "Hue answer"), nil
	})
	p := f.build(t)

	res, err := p.Answer(context.Background(), "Hue history", WithVerbose(true))
	require.NoError(t, err)

	assert.Equal(t, "Hue answer", res.Answer)
	assert.Empty(t, res.Summary, "no matches means no summary call")
	assert.Equal(t, 1, f.generator.GetCallCount())
	assert.NotContains(t, prompt, matchesHeader)
	assert.Contains(t, prompt, factsHeader)
	assert.Equal(t, 2, strings.Count(prompt, "- (city_hue)"))
	assert.Empty(t, res.Degraded)
}

func TestPipeline_GenerationFailure(t *testing.T) {
	f := newPipelineFixture()
	f.generator = mocks.NewErrorProvider(types.NewError(types.ErrUnauthorized, "bad key"))
	p := f.build(t)

	res, err := p.Answer(context.Background(), "what is pho")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrGeneration))
	require.NotNil(t, res)
	assert.Equal(t, StageFailed, res.Stage)
	require.NotNil(t, res.Failure)
	assert.Equal(t, StageGenerating, res.Failure.Stage)
	assert.Equal(t, types.ErrGeneration, res.Failure.Code)
	assert.Empty(t, res.Answer)
}

func TestPipeline_EmptyAnswerIsFailure(t *testing.T) {
	f := newPipelineFixture()
	f.generator = mocks.NewSuccessProvider("   ")
	p := f.build(t)

	_, err := p.Answer(context.Background(), "what is pho")
	require.Error(t, err)
	assert.Equal(t, types.ErrGeneration, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "empty answer")
}

func TestPipeline_SummaryFailureIsIgnored(t *testing.T) {
	f := newPipelineFixture()
	f.generator = mocks.NewMockProvider().WithCompletionFunc(func(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
		if req.MaxTokens == 120 {
			return nil, errors.New("summary boom")
		}
		return mocks.NewChatResponse(req.Model, "answer"), nil
	})
	p := f.build(t)

	res, err := p.Answer(context.Background(), "what is pho")
	require.NoError(t, err)
	assert.Equal(t, "answer", res.Answer)
	assert.Empty(t, res.Summary)
}

func TestPipeline_SummarizeDisabled(t *testing.T) {
	f := newPipelineFixture()
	f.cfg.Summarize = false
	p := f.build(t)

	_, err := p.Answer(context.Background(), "what is pho")
	require.NoError(t, err)
	assert.Equal(t, 1, f.generator.GetCallCount())
}

func TestPipeline_TimeoutDuringGenerationFails(t *testing.T) {
	f := newPipelineFixture()
	f.cfg.RequestTimeout = 20 * time.Millisecond
	f.cfg.Summarize = false
	f.generator = mocks.NewSuccessProvider("late").WithDelay(time.Second)
	p := f.build(t)

	res, err := p.Answer(context.Background(), "what is pho")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrGeneration))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, StageFailed, res.Stage)
}

func TestPipeline_EmptyQuery(t *testing.T) {
	f := newPipelineFixture()
	p := f.build(t)

	res, err := p.Answer(context.Background(), "  ")
	assert.True(t, types.IsCode(err, types.ErrInvalidRequest))
	assert.Equal(t, StageFailed, res.Stage)
	assert.Zero(t, f.embedder.calls.Load())
}

func TestPipeline_RequestsDoNotShareState(t *testing.T) {
	f := newPipelineFixture()
	p := f.build(t)

	a, err := p.Answer(context.Background(), "what is pho")
	require.NoError(t, err)
	b, err := p.Answer(context.Background(), "what is pho")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Facts, b.Facts)
	assert.Equal(t, 4, f.store.lookupCount(), "each request enriches its own ids")
}

func TestPipeline_ModelOverrideFromContext(t *testing.T) {
	f := newPipelineFixture()
	f.cfg.Summarize = false
	p := f.build(t)

	ctx := ctxkeys.WithLLMModel(context.Background(), "gpt-4o")
	_, err := p.Answer(ctx, "what is pho")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", f.generator.GetLastCall().Request.Model)
}

func TestNewPipeline_RequiresDeps(t *testing.T) {
	_, err := NewPipeline(DefaultPipelineConfig(), PipelineDeps{})
	assert.True(t, types.IsCode(err, types.ErrConfiguration))
}

func TestNewPipeline_PartialConfigKeepsContextLimits(t *testing.T) {
	f := newPipelineFixture()
	f.cfg = PipelineConfig{TopK: 6, Model: "test-model"}
	p := f.build(t)

	res, err := p.Answer(context.Background(), "best things to see in Hanoi", WithVerbose(true))
	require.NoError(t, err)
	require.NotEmpty(t, res.Matches)
	require.NotEmpty(t, res.Facts)
	assert.Contains(t, res.Context, matchesHeader)
	assert.Contains(t, res.Context, factsHeader)
	assert.Contains(t, res.Context, "- attraction_1 | Hoan Kiem Lake | Hanoi")

	def := DefaultPipelineConfig()
	assert.Equal(t, ContextBuilder{MaxMatches: def.MaxMatches, MaxFacts: def.MaxFacts, MaxChars: def.MaxContextChars}, p.builder)
}

func TestPipeline_StageSpansParentDownstreamCalls(t *testing.T) {
	prev := otel.GetTracerProvider()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	f := newPipelineFixture()
	f.cfg.Summarize = false
	p := f.build(t)

	_, err := p.Answer(context.Background(), "what is pho")
	require.NoError(t, err)

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range rec.Ended() {
		byName[s.Name()] = s
	}
	root, ok := byName["rag.Answer"]
	require.True(t, ok)
	retrieving, ok := byName["rag."+string(StageRetrieving)]
	require.True(t, ok)
	assert.Equal(t, root.SpanContext().SpanID(), retrieving.Parent().SpanID())

	// 索引调用挂在 retrieving 阶段的 span 下
	require.Len(t, f.index.spans, 1)
	assert.Equal(t, retrieving.SpanContext().SpanID(), f.index.spans[0].SpanID())
}
