// =============================================================================
// 📦 travelrag 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Pipeline:  DefaultPipelineConfig(),
		OpenAI:    DefaultOpenAIConfig(),
		Pinecone:  DefaultPineconeConfig(),
		Graph:     DefaultGraphConfig(),
		Cache:     DefaultCacheConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    90 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
	}
}

// DefaultPipelineConfig 返回默认管道配置
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TopK:             6,
		RerankBoost:      0.15,
		MaxMatches:       8,
		MaxFacts:         20,
		MaxContextChars:  6000,
		MaxDescription:   350,
		ResultMatches:    6,
		ResultFacts:      12,
		SeedLimit:        5,
		RequestTimeout:   60 * time.Second,
		Summarize:        true,
		AnswerMaxTokens:  600,
		SummaryMaxTokens: 120,
		Temperature:      0.2,
		Retry: RetryConfig{
			MaxRetries:   2,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
	}
}

// DefaultOpenAIConfig 返回默认 OpenAI 配置
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:        "https://api.openai.com",
		EmbeddingModel: "text-embedding-3-small",
		Dimensions:     1536,
		ChatModel:      "gpt-4o-mini",
		Timeout:        60 * time.Second,
	}
}

// DefaultPineconeConfig 返回默认 Pinecone 配置
func DefaultPineconeConfig() PineconeConfig {
	return PineconeConfig{
		Index:             "vietnam-travel",
		ControllerBaseURL: "https://api.pinecone.io",
		Timeout:           30 * time.Second,
	}
}

// DefaultGraphConfig 返回默认图谱配置
func DefaultGraphConfig() GraphConfig {
	return GraphConfig{
		Backend: "neo4j",
		Neo4j: Neo4jConfig{
			URI:                   "bolt://localhost:7687",
			User:                  "neo4j",
			MaxConnectionPoolSize: 50,
		},
		FullTextIndex: "entityFullTextIndex",
		MaxNeighbors:  20,
		Workers:       8,
		QueueSize:     64,
	}
}

// DefaultCacheConfig 返回默认嵌入缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Backend:   "sql",
		KeyPrefix: "travelrag:emb:",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:                "localhost:6379",
		Password:            "",
		DB:                  0,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "travelrag",
		Name:            "embeddings_cache.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "travelrag",
		SampleRate:   0.1,
	}
}
