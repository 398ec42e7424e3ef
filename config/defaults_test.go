package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 验证服务器默认值
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	// 验证管道默认值
	assert.Equal(t, 6, cfg.Pipeline.TopK)
	assert.Equal(t, 0.15, cfg.Pipeline.RerankBoost)
	assert.Equal(t, 8, cfg.Pipeline.MaxMatches)
	assert.Equal(t, 20, cfg.Pipeline.MaxFacts)
	assert.Equal(t, 350, cfg.Pipeline.MaxDescription)
	assert.Equal(t, 600, cfg.Pipeline.AnswerMaxTokens)
	assert.Equal(t, 120, cfg.Pipeline.SummaryMaxTokens)
	assert.True(t, cfg.Pipeline.Summarize)

	// 验证外部服务默认值
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 1536, cfg.OpenAI.Dimensions)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, "vietnam-travel", cfg.Pinecone.Index)

	// 验证图谱默认值
	assert.Equal(t, "neo4j", cfg.Graph.Backend)
	assert.Equal(t, "entityFullTextIndex", cfg.Graph.FullTextIndex)
	assert.Equal(t, 20, cfg.Graph.MaxNeighbors)
	assert.Equal(t, 8, cfg.Graph.Workers)

	// 验证缓存默认值
	assert.Equal(t, "sql", cfg.Cache.Backend)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	// 验证 Log 默认值
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestDefaultConfig_ReturnsFreshCopies(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	a.Log.OutputPaths[0] = "changed"
	assert.Equal(t, "stdout", b.Log.OutputPaths[0])
}
