// Config → RAG 桥接层。
//
// 提供工厂函数，将全局 config.Config 转换为 rag 包的运行时实例，
// 消除 config 包和 rag 包之间的手动配置映射。
package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/travelrag/config"
	"github.com/BaSui01/travelrag/internal/cache"
	"github.com/BaSui01/travelrag/internal/database"
	"github.com/BaSui01/travelrag/internal/metrics"
	"github.com/BaSui01/travelrag/internal/pool"
	"github.com/BaSui01/travelrag/llm/embedding"
	"github.com/BaSui01/travelrag/llm/providers/openai"
	"github.com/BaSui01/travelrag/llm/retry"
	"github.com/BaSui01/travelrag/types"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 后端标识，与 config 中的取值一致
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendSQL    = "sql"

	GraphBackendNeo4j = "neo4j"
	GraphBackendSQL   = "sql"
)

// Resources 管道持有的外部连接。
// 由 NewPipelineFromConfig 按需打开，调用方在进程退出时 Close。
type Resources struct {
	DB      *gorm.DB
	DBPool  *database.PoolManager
	Redis   *cache.Manager
	Neo4j   neo4j.DriverWithContext
	Workers *pool.Pool
	Graph   GraphStore
	Index   *PineconeStore
}

// Close 关闭所有已打开的连接，返回遇到的全部错误
func (r *Resources) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Workers != nil {
		r.Workers.Close()
	}
	if r.Neo4j != nil {
		if err := r.Neo4j.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close neo4j: %w", err))
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	switch {
	case r.DBPool != nil:
		if err := r.DBPool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	case r.DB != nil:
		if sqlDB, err := r.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

// PipelineConfigFrom 将全局配置映射为管道参数
func PipelineConfigFrom(cfg *config.Config) PipelineConfig {
	p := cfg.Pipeline
	return PipelineConfig{
		TopK:             p.TopK,
		RerankBoost:      p.RerankBoost,
		MaxMatches:       p.MaxMatches,
		MaxFacts:         p.MaxFacts,
		MaxContextChars:  p.MaxContextChars,
		ResultMatches:    p.ResultMatches,
		ResultFacts:      p.ResultFacts,
		SeedLimit:        p.SeedLimit,
		RequestTimeout:   p.RequestTimeout,
		Model:            cfg.OpenAI.ChatModel,
		AnswerMaxTokens:  p.AnswerMaxTokens,
		SummaryMaxTokens: p.SummaryMaxTokens,
		Temperature:      float32(p.Temperature),
		Summarize:        p.Summarize,
	}
}

// RetryPolicyFrom 在默认策略上覆盖配置中给出的字段
func RetryPolicyFrom(rc config.RetryConfig) *retry.RetryPolicy {
	policy := retry.DefaultRetryPolicy()
	if rc.MaxRetries >= 0 {
		policy.MaxRetries = rc.MaxRetries
	}
	if rc.InitialDelay > 0 {
		policy.InitialDelay = rc.InitialDelay
	}
	if rc.MaxDelay > 0 {
		policy.MaxDelay = rc.MaxDelay
	}
	return policy
}

// GraphEnricherConfigFrom 映射图谱扩展参数
func GraphEnricherConfigFrom(cfg *config.Config) GraphEnricherConfig {
	return GraphEnricherConfig{
		MaxNeighbors:   cfg.Graph.MaxNeighbors,
		MaxDescription: cfg.Pipeline.MaxDescription,
	}
}

// NewEmbeddingProviderFromConfig 创建 OpenAI 嵌入提供者
func NewEmbeddingProviderFromConfig(cfg *config.Config) embedding.Provider {
	return embedding.NewOpenAIProvider(embedding.OpenAIConfig{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.Dimensions,
		Timeout:    cfg.OpenAI.Timeout,
	})
}

// NewGeneratorFromConfig 创建 OpenAI 聊天提供者
func NewGeneratorFromConfig(cfg *config.Config, logger *zap.Logger) *openai.Provider {
	return openai.New(openai.Config{
		APIKey:       cfg.OpenAI.APIKey,
		BaseURL:      cfg.OpenAI.BaseURL,
		Model:        cfg.OpenAI.ChatModel,
		Organization: cfg.OpenAI.Organization,
		Timeout:      cfg.OpenAI.Timeout,
	}, logger)
}

// NewVectorIndexFromConfig 创建 Pinecone 向量索引
func NewVectorIndexFromConfig(cfg *config.Config, logger *zap.Logger) *PineconeStore {
	return NewPineconeStore(PineconeConfig{
		APIKey:            cfg.Pinecone.APIKey,
		Index:             cfg.Pinecone.Index,
		BaseURL:           cfg.Pinecone.BaseURL,
		Namespace:         cfg.Pinecone.Namespace,
		Timeout:           cfg.Pinecone.Timeout,
		ControllerBaseURL: cfg.Pinecone.ControllerBaseURL,
	}, logger)
}

// NewEmbeddingCacheFromConfig 根据 cache.backend 创建嵌入缓存。
// 需要的连接从 res 中取，缺失时打开并回填。
func NewEmbeddingCacheFromConfig(ctx context.Context, cfg *config.Config, res *Resources, logger *zap.Logger) (EmbeddingCache, error) {
	switch cfg.Cache.Backend {
	case CacheBackendMemory, "":
		return NewMemoryEmbeddingCache(), nil

	case CacheBackendRedis:
		if res.Redis == nil {
			manager, err := cache.NewManager(cache.ConfigFrom(cfg.Redis), logger)
			if err != nil {
				return nil, types.Wrap(err, types.ErrConfiguration, "failed to connect embedding cache redis")
			}
			res.Redis = manager
		}
		return NewRedisEmbeddingCache(res.Redis, cfg.Cache.KeyPrefix), nil

	case CacheBackendSQL:
		db, err := res.database(cfg, logger)
		if err != nil {
			return nil, err
		}
		c, err := NewSQLEmbeddingCache(ctx, db)
		if err != nil {
			return nil, types.Wrap(err, types.ErrConfiguration, "failed to prepare embedding cache table")
		}
		return c, nil

	default:
		return nil, types.NewError(types.ErrConfiguration, fmt.Sprintf("unsupported cache backend: %s", cfg.Cache.Backend))
	}
}

// NewGraphStoreFromConfig 根据 graph.backend 创建图谱存储
func NewGraphStoreFromConfig(ctx context.Context, cfg *config.Config, res *Resources, logger *zap.Logger) (GraphStore, error) {
	switch cfg.Graph.Backend {
	case GraphBackendNeo4j, "":
		n := cfg.Graph.Neo4j
		ncfg := Neo4jConfig{
			URI:                   n.URI,
			User:                  n.User,
			Password:              n.Password,
			Database:              n.Database,
			FullTextIndex:         cfg.Graph.FullTextIndex,
			MaxConnectionPoolSize: n.MaxConnectionPoolSize,
		}
		if res.Neo4j == nil {
			driver, err := NewNeo4jDriver(ncfg)
			if err != nil {
				return nil, types.Wrap(err, types.ErrConfiguration, "failed to create neo4j driver")
			}
			res.Neo4j = driver
		}
		return NewNeo4jGraphStore(res.Neo4j, ncfg, logger), nil

	case GraphBackendSQL:
		db, err := res.database(cfg, logger)
		if err != nil {
			return nil, err
		}
		store := NewSQLGraphStore(db, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, types.Wrap(err, types.ErrConfiguration, "failed to prepare graph tables")
		}
		return store, nil

	default:
		return nil, types.NewError(types.ErrConfiguration, fmt.Sprintf("unsupported graph backend: %s", cfg.Graph.Backend))
	}
}

func (r *Resources) database(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	if r.DB != nil {
		return r.DB, nil
	}
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, types.Wrap(err, types.ErrConfiguration, "failed to open database")
	}
	pm, err := database.NewPoolManager(db, database.PoolConfigFrom(cfg.Database), logger)
	if err != nil {
		return nil, types.Wrap(err, types.ErrConfiguration, "failed to configure database pool")
	}
	r.DBPool = pm
	r.DB = pm.DB()
	return r.DB, nil
}

// NewPipelineFromConfig 一键组装完整管道。
// 返回的 Resources 即使出错也可能持有部分连接，调用方应始终 Close。
func NewPipelineFromConfig(ctx context.Context, cfg *config.Config, recorder metrics.Recorder, logger *zap.Logger) (*Pipeline, *Resources, error) {
	if cfg == nil {
		return nil, nil, types.NewError(types.ErrConfiguration, "config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	res := &Resources{}

	embCache, err := NewEmbeddingCacheFromConfig(ctx, cfg, res, logger)
	if err != nil {
		return nil, res, err
	}
	cacheType := cfg.Cache.Backend
	if cacheType == "" {
		cacheType = CacheBackendMemory
	}
	embedder := NewCachedEmbedder(NewEmbeddingProviderFromConfig(cfg), embCache, CachedEmbedderConfig{
		Dimensions: cfg.OpenAI.Dimensions,
		CacheType:  cacheType,
	}, recorder, logger)

	retryer := retry.NewBackoffRetryer(RetryPolicyFrom(cfg.Pipeline.Retry), logger)
	res.Index = NewVectorIndexFromConfig(cfg, logger)
	retriever := NewVectorRetriever(embedder, res.Index, retryer, recorder, logger)

	graph, err := NewGraphStoreFromConfig(ctx, cfg, res, logger)
	if err != nil {
		return nil, res, err
	}
	res.Graph = graph

	res.Workers = pool.New(pool.Config{
		MaxWorkers: cfg.Graph.Workers,
		QueueSize:  cfg.Graph.QueueSize,
		PanicHandler: func(v any) {
			logger.Error("graph worker panic", zap.Any("panic", v))
		},
	})
	enricher := NewGraphEnricher(graph, res.Workers, GraphEnricherConfigFrom(cfg), recorder, logger)

	p, err := NewPipeline(PipelineConfigFrom(cfg), PipelineDeps{
		Retriever: retriever,
		Enricher:  enricher,
		Generator: NewGeneratorFromConfig(cfg, logger),
		Metrics:   recorder,
		Logger:    logger,
	})
	if err != nil {
		return nil, res, err
	}
	return p, res, nil
}
