// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().WithWellKnownEnv(false).Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 6, cfg.Pipeline.TopK)
	assert.Equal(t, "vietnam-travel", cfg.Pinecone.Index)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s

pipeline:
  top_k: 10
  rerank_boost: 0.2
  summarize: false
  retry:
    max_retries: 4

openai:
  api_key: "sk-yaml"
  chat_model: "gpt-4o"

graph:
  backend: sql
  max_neighbors: 5

cache:
  backend: redis

log:
  level: debug
  output_paths: ["stderr"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := NewLoader().WithConfigPath(configPath).WithWellKnownEnv(false).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10, cfg.Pipeline.TopK)
	assert.Equal(t, 0.2, cfg.Pipeline.RerankBoost)
	assert.False(t, cfg.Pipeline.Summarize)
	assert.Equal(t, 4, cfg.Pipeline.Retry.MaxRetries)
	assert.Equal(t, "sk-yaml", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
	assert.Equal(t, "sql", cfg.Graph.Backend)
	assert.Equal(t, 5, cfg.Graph.MaxNeighbors)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, []string{"stderr"}, cfg.Log.OutputPaths)

	// 未出现在 YAML 中的字段保留默认值
	assert.Equal(t, 20, cfg.Pipeline.MaxFacts)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).
		WithWellKnownEnv(false).
		Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Pipeline, cfg.Pipeline)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [unclosed"), 0o644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("TRAVELRAG_SERVER_HTTP_PORT", "9999")
	t.Setenv("TRAVELRAG_PIPELINE_REQUEST_TIMEOUT", "15s")
	t.Setenv("TRAVELRAG_PIPELINE_RERANK_BOOST", "0.3")
	t.Setenv("TRAVELRAG_PIPELINE_SUMMARIZE", "false")
	t.Setenv("TRAVELRAG_PIPELINE_RETRY_MAX_RETRIES", "1")
	t.Setenv("TRAVELRAG_GRAPH_NEO4J_URI", "neo4j://graph:7687")
	t.Setenv("TRAVELRAG_LOG_OUTPUT_PATHS", "stdout, /var/log/travelrag.log")

	cfg, err := NewLoader().WithWellKnownEnv(false).Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, 15*time.Second, cfg.Pipeline.RequestTimeout)
	assert.Equal(t, 0.3, cfg.Pipeline.RerankBoost)
	assert.False(t, cfg.Pipeline.Summarize)
	assert.Equal(t, 1, cfg.Pipeline.Retry.MaxRetries)
	assert.Equal(t, "neo4j://graph:7687", cfg.Graph.Neo4j.URI)
	assert.Equal(t, []string{"stdout", "/var/log/travelrag.log"}, cfg.Log.OutputPaths)
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_PIPELINE_TOP_K", "3")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").WithWellKnownEnv(false).Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Pipeline.TopK)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("TRAVELRAG_SERVER_HTTP_PORT", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRAVELRAG_SERVER_HTTP_PORT")
}

func TestLoader_WellKnownEnvFillsOnlyEmptyFields(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-plain")
	t.Setenv("PINECONE_API_KEY", "pc-plain")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("TRAVELRAG_PINECONE_API_KEY", "pc-prefixed")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-plain", cfg.OpenAI.APIKey)
	assert.Equal(t, "pc-prefixed", cfg.Pinecone.APIKey, "前缀变量优先")
	assert.Equal(t, "secret", cfg.Graph.Neo4j.Password)
}

func TestLoader_Validators(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewLoader().
		WithWellKnownEnv(false).
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "postgres",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "travel", SSLMode: "disable"},
			want: "host=db port=5432 user=u password=p dbname=travel sslmode=disable",
		},
		{
			name: "sqlite",
			cfg:  DatabaseConfig{Driver: "sqlite", Name: "cache.db"},
			want: "cache.db",
		},
		{
			name: "unknown",
			cfg:  DatabaseConfig{Driver: "oracle"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
