package rag

import (
	"context"
	"sync"

	"github.com/BaSui01/travelrag/internal/metrics"
	"github.com/BaSui01/travelrag/internal/pool"
	"github.com/BaSui01/travelrag/types"
	"go.uber.org/zap"
)

// GraphEnricherConfig 配置 GraphEnricher
type GraphEnricherConfig struct {
	// MaxNeighbors 每个 id 最多取回的邻居数
	MaxNeighbors int
	// MaxDescription 描述截断长度（字符数）
	MaxDescription int
}

// DefaultGraphEnricherConfig 返回默认配置
func DefaultGraphEnricherConfig() GraphEnricherConfig {
	return GraphEnricherConfig{MaxNeighbors: 20, MaxDescription: 350}
}

// GraphEnricher 为候选实体取回一跳邻居事实。
// 每个 id 的查询在有界协程池中执行，单个 id 失败不影响其他 id。
type GraphEnricher struct {
	store   GraphStore
	workers *pool.Pool
	cfg     GraphEnricherConfig
	metrics metrics.Recorder
	logger  *zap.Logger
}

// NewGraphEnricher 创建 GraphEnricher；workers 为 nil 时使用默认大小的池
func NewGraphEnricher(store GraphStore, workers *pool.Pool, cfg GraphEnricherConfig, recorder metrics.Recorder, logger *zap.Logger) *GraphEnricher {
	def := DefaultGraphEnricherConfig()
	if cfg.MaxNeighbors <= 0 {
		cfg.MaxNeighbors = def.MaxNeighbors
	}
	if cfg.MaxDescription <= 0 {
		cfg.MaxDescription = def.MaxDescription
	}
	if workers == nil {
		workers = pool.New(pool.DefaultConfig())
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphEnricher{
		store:   store,
		workers: workers,
		cfg:     cfg,
		metrics: recorder,
		logger:  logger.With(zap.String("component", "graph_enricher")),
	}
}

// Enrich 返回 ids 的邻居事实，按 id 顺序拼接，重复 id 只查询一次。
// 失败的 id 贡献零条事实。
func (g *GraphEnricher) Enrich(ctx context.Context, ids []string) []Fact {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil
	}

	results := make([][]Fact, len(unique))
	var wg sync.WaitGroup
	for i, id := range unique {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var facts []Fact
			err := g.workers.SubmitWait(ctx, func(ctx context.Context) error {
				var err error
				facts, err = g.store.Neighbors(ctx, id, g.cfg.MaxNeighbors)
				return err
			})
			if err != nil {
				g.fail(id, err)
				return
			}
			results[i] = g.clean(facts)
		}()
	}
	wg.Wait()

	var out []Fact
	for _, facts := range results {
		out = append(out, facts...)
	}
	g.logger.Debug("enrichment completed",
		zap.Int("ids", len(unique)),
		zap.Int("facts", len(out)),
		zap.Any("pool", g.workers.Stats()))
	return out
}

// Seed 在没有向量匹配时用全文检索挑选种子实体
func (g *GraphEnricher) Seed(ctx context.Context, query string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	entities, err := g.store.SearchEntities(ctx, query, limit)
	if err != nil {
		g.metrics.RecordEnrichmentFailure()
		g.logger.Warn("seed entity search failed",
			zap.Error(types.Wrap(err, types.ErrEnrichment, "seed entity search failed")))
		return nil
	}
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return dedupe(ids)
}

func (g *GraphEnricher) clean(facts []Fact) []Fact {
	out := make([]Fact, 0, len(facts))
	for _, f := range facts {
		if f.TargetID == "" {
			continue
		}
		f.Description = truncateRunes(f.Description, g.cfg.MaxDescription)
		out = append(out, f)
		if len(out) == g.cfg.MaxNeighbors {
			break
		}
	}
	return out
}

func (g *GraphEnricher) fail(id string, err error) {
	g.metrics.RecordEnrichmentFailure()
	g.logger.Warn("graph enrichment failed for id",
		zap.String("id", id),
		zap.Error(types.Wrap(err, types.ErrEnrichment, "neighbor lookup failed").
			WithStage(string(StageEnriching))))
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
