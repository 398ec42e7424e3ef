package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/travelrag/internal/ctxkeys"
	"github.com/BaSui01/travelrag/internal/metrics"
	"github.com/BaSui01/travelrag/internal/telemetry"
	"github.com/BaSui01/travelrag/llm"
	"github.com/BaSui01/travelrag/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PipelineConfig 问答管道参数
type PipelineConfig struct {
	TopK            int
	RerankBoost     float64
	MaxMatches      int
	MaxFacts        int
	MaxContextChars int
	ResultMatches   int
	ResultFacts     int
	SeedLimit       int
	RequestTimeout  time.Duration

	Model            string
	AnswerMaxTokens  int
	SummaryMaxTokens int
	Temperature      float32
	Summarize        bool
}

// DefaultPipelineConfig 返回默认参数
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TopK:             6,
		RerankBoost:      DefaultRerankBoost,
		MaxMatches:       8,
		MaxFacts:         20,
		MaxContextChars:  6000,
		ResultMatches:    6,
		ResultFacts:      12,
		SeedLimit:        5,
		RequestTimeout:   60 * time.Second,
		AnswerMaxTokens:  600,
		SummaryMaxTokens: 120,
		Temperature:      0.2,
		Summarize:        true,
	}
}

// PipelineDeps 管道依赖，由调用方构造一次后注入
type PipelineDeps struct {
	Classifier *IntentClassifier
	Retriever  *VectorRetriever
	Enricher   *GraphEnricher
	Generator  llm.Provider
	Metrics    metrics.Recorder
	Logger     *zap.Logger
}

// StageError 某个阶段的降级或失败记录
type StageError struct {
	Stage   Stage           `json:"stage"`
	Code    types.ErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Result 一次问答的结果
type Result struct {
	ID        string         `json:"id"`
	Query     string         `json:"query"`
	Intent    Intent         `json:"intent"`
	Stage     Stage          `json:"stage"`
	Answer    string         `json:"answer"`
	Summary   string         `json:"summary,omitempty"`
	Matches   []RankedResult `json:"matches"`
	Ranked    []RankedResult `json:"ranked,omitempty"`
	Facts     []Fact         `json:"facts"`
	GraphOnly bool           `json:"graph_only,omitempty"`
	Degraded  []StageError   `json:"degraded,omitempty"`
	Failure   *StageError    `json:"failure,omitempty"`

	// 仅 verbose 模式
	Context string           `json:"context,omitempty"`
	Timings map[Stage]string `json:"timings,omitempty"`
}

// AnswerOption 单次调用选项
type AnswerOption func(*answerOptions)

type answerOptions struct {
	verbose bool
}

// WithVerbose 在结果中附带上下文与各阶段耗时
func WithVerbose(v bool) AnswerOption {
	return func(o *answerOptions) { o.verbose = v }
}

// Pipeline 混合检索问答管道：意图分类、向量检索、图谱扩展、重排、上下文、生成
type Pipeline struct {
	classifier *IntentClassifier
	retriever  *VectorRetriever
	enricher   *GraphEnricher
	generator  llm.Provider
	reranker   Reranker
	builder    ContextBuilder

	cfg     PipelineConfig
	metrics metrics.Recorder
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewPipeline 创建管道
func NewPipeline(cfg PipelineConfig, deps PipelineDeps) (*Pipeline, error) {
	if deps.Retriever == nil {
		return nil, types.NewError(types.ErrConfiguration, "pipeline requires a vector retriever")
	}
	if deps.Enricher == nil {
		return nil, types.NewError(types.ErrConfiguration, "pipeline requires a graph enricher")
	}
	if deps.Generator == nil {
		return nil, types.NewError(types.ErrConfiguration, "pipeline requires a generation provider")
	}

	def := DefaultPipelineConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.ResultMatches <= 0 {
		cfg.ResultMatches = def.ResultMatches
	}
	if cfg.ResultFacts <= 0 {
		cfg.ResultFacts = def.ResultFacts
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.AnswerMaxTokens <= 0 {
		cfg.AnswerMaxTokens = def.AnswerMaxTokens
	}
	if cfg.SummaryMaxTokens <= 0 {
		cfg.SummaryMaxTokens = def.SummaryMaxTokens
	}
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = def.MaxMatches
	}
	if cfg.MaxFacts <= 0 {
		cfg.MaxFacts = def.MaxFacts
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = def.MaxContextChars
	}

	classifier := deps.Classifier
	if classifier == nil {
		classifier = NewIntentClassifier(nil)
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		classifier: classifier,
		retriever:  deps.Retriever,
		enricher:   deps.Enricher,
		generator:  deps.Generator,
		reranker:   Reranker{Boost: cfg.RerankBoost},
		builder: ContextBuilder{
			MaxMatches: cfg.MaxMatches,
			MaxFacts:   cfg.MaxFacts,
			MaxChars:   cfg.MaxContextChars,
		},
		cfg:     cfg,
		metrics: recorder,
		logger:  logger.With(zap.String("component", "pipeline")),
		tracer:  telemetry.Tracer(),
	}, nil
}

// run 单次请求的可变状态，不跨请求共享
type run struct {
	p       *Pipeline
	res     *Result
	timings map[Stage]time.Duration
	logger  *zap.Logger
}

// Answer 回答一个问题。
// 检索阶段失败时降级继续；生成失败时返回 GENERATION 错误，同时返回带 Failure 的结果。
func (p *Pipeline) Answer(ctx context.Context, query string, opts ...AnswerOption) (*Result, error) {
	var o answerOptions
	for _, opt := range opts {
		opt(&o)
	}

	res := &Result{ID: uuid.NewString(), Query: query, Intent: IntentGeneral, Stage: StageClassifying}
	r := &run{
		p:       p,
		res:     res,
		timings: make(map[Stage]time.Duration),
		logger:  p.logger.With(zap.String("request_id", res.ID)),
	}
	if rid, ok := ctxkeys.RequestID(ctx); ok {
		r.logger = r.logger.With(zap.String("http_request_id", rid))
	}

	if strings.TrimSpace(query) == "" {
		err := types.NewError(types.ErrInvalidRequest, "query must not be empty")
		r.fail(StageClassifying, err)
		return res, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	ctx, span := p.tracer.Start(ctx, "rag.Answer", trace.WithAttributes(attribute.String("request_id", res.ID)))
	defer span.End()

	err := r.execute(ctx)

	if o.verbose {
		res.Timings = make(map[Stage]string, len(r.timings))
		for stage, d := range r.timings {
			res.Timings[stage] = d.String()
		}
	} else {
		res.Context = ""
	}

	status := "success"
	switch {
	case err != nil:
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case len(res.Degraded) > 0:
		status = "degraded"
	}
	span.SetAttributes(attribute.String("intent", string(res.Intent)), attribute.String("status", status))
	p.metrics.RecordAnswer(string(res.Intent), status)

	return res, err
}

func (r *run) execute(ctx context.Context) error {
	p := r.p
	res := r.res

	// 分类与嵌入并发
	var vec []float64
	var embedErr error
	sctx, end := r.stage(ctx, StageClassifying)
	var g errgroup.Group
	g.Go(func() error {
		res.Intent = p.classifier.Classify(res.Query)
		return nil
	})
	g.Go(func() error {
		vec, embedErr = p.retriever.Embed(sctx, res.Query)
		return nil
	})
	_ = g.Wait()
	end(nil)

	res.Stage = StageRetrieving
	var matches []Match
	sctx, end = r.stage(ctx, StageRetrieving)
	retrievalErr := embedErr
	if retrievalErr == nil {
		matches, retrievalErr = p.retriever.SearchVector(sctx, vec, p.cfg.TopK)
	}
	end(retrievalErr)
	if retrievalErr != nil {
		r.degrade(StageRetrieving, retrievalErr)
		matches = nil
	}

	res.Stage = StageEnriching
	sctx, end = r.stage(ctx, StageEnriching)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		res.GraphOnly = true
		ids = p.enricher.Seed(sctx, res.Query, p.cfg.SeedLimit)
		r.logger.Info("no vector matches, using graph-only mode", zap.Int("seeds", len(ids)))
	}
	facts := p.enricher.Enrich(sctx, ids)
	end(nil)

	res.Stage = StageRanking
	_, end = r.stage(ctx, StageRanking)
	ranked := p.reranker.Rerank(matches, facts)
	end(nil)

	res.Stage = StageContextBuilding
	_, end = r.stage(ctx, StageContextBuilding)
	promptContext := p.builder.Build(res.Query, ranked, facts, res.Intent)
	end(nil)

	res.Ranked = ranked
	res.Matches = head(ranked, p.cfg.ResultMatches)
	res.Facts = head(facts, p.cfg.ResultFacts)
	res.Context = promptContext

	res.Stage = StageGenerating
	sctx, end = r.stage(ctx, StageGenerating)
	answer, summary, err := r.generate(sctx, promptContext, res.Matches)
	end(err)
	if err != nil {
		r.fail(StageGenerating, err)
		return err
	}

	res.Answer = answer
	res.Summary = summary
	res.Stage = StageDone
	return nil
}

// generate 生成回答，并行生成可选的摘要；摘要失败只记录日志
func (r *run) generate(ctx context.Context, promptContext string, top []RankedResult) (string, string, error) {
	p := r.p

	var answer, summary string
	var answerErr error
	var g errgroup.Group
	g.Go(func() error {
		answer, answerErr = r.complete(ctx, "answer", AnswerMessages(r.res.Intent, promptContext), p.cfg.AnswerMaxTokens)
		return nil
	})
	if msgs := SummaryMessages(top); p.cfg.Summarize && msgs != nil {
		g.Go(func() error {
			s, err := r.complete(ctx, "summary", msgs, p.cfg.SummaryMaxTokens)
			if err != nil {
				r.logger.Warn("summary generation failed, omitting summary", zap.Error(err))
				return nil
			}
			summary = s
			return nil
		})
	}
	_ = g.Wait()

	if answerErr != nil {
		msg := "answer generation failed"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = "answer generation timed out"
		}
		return "", "", types.Wrap(answerErr, types.ErrGeneration, msg).
			WithProvider(p.generator.Name()).
			WithStage(string(StageGenerating))
	}
	if answer == "" {
		return "", "", types.NewError(types.ErrGeneration, "generation provider returned an empty answer").
			WithProvider(p.generator.Name()).
			WithStage(string(StageGenerating))
	}
	return answer, summary, nil
}

func (r *run) complete(ctx context.Context, operation string, msgs []llm.Message, maxTokens int) (string, error) {
	p := r.p
	model := p.cfg.Model
	if m, ok := ctxkeys.LLMModel(ctx); ok {
		model = m
	}
	start := time.Now()
	resp, err := p.generator.Completion(ctx, &llm.ChatRequest{
		TraceID:     r.res.ID,
		Model:       model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		p.metrics.RecordProviderRequest(p.generator.Name(), operation, "error", time.Since(start))
		return "", err
	}
	p.metrics.RecordProviderRequest(p.generator.Name(), operation, "success", time.Since(start))
	p.metrics.RecordTokens(p.generator.Name(), resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return strings.TrimSpace(resp.FirstContent()), nil
}

// stage 开启一个阶段的 span 与计时，返回阶段 ctx 与结束函数
func (r *run) stage(ctx context.Context, stage Stage) (context.Context, func(error)) {
	ctx, span := r.p.tracer.Start(ctx, "rag."+string(stage))
	start := time.Now()
	return ctx, func(err error) {
		d := time.Since(start)
		r.timings[stage] += d
		r.p.metrics.ObserveStage(string(stage), d)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (r *run) degrade(stage Stage, err error) {
	se := stageError(stage, err)
	r.res.Degraded = append(r.res.Degraded, se)
	r.logger.Warn("pipeline stage degraded",
		zap.String("stage", string(stage)),
		zap.String("code", string(se.Code)),
		zap.Error(err))
}

func (r *run) fail(stage Stage, err error) {
	se := stageError(stage, err)
	r.res.Failure = &se
	r.res.Stage = StageFailed
	r.logger.Error("pipeline failed",
		zap.String("stage", string(stage)),
		zap.String("code", string(se.Code)),
		zap.Error(err))
}

func stageError(stage Stage, err error) StageError {
	code := types.GetErrorCode(err)
	if code == "" {
		code = types.ErrInternalError
	}
	return StageError{Stage: stage, Code: code, Message: err.Error()}
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	return append(make([]T, 0, len(s)), s...)
}

// String 便于日志输出
func (s StageError) String() string {
	return fmt.Sprintf("%s: [%s] %s", s.Stage, s.Code, s.Message)
}
