// =============================================================================
// 📦 travelrag 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("TRAVELRAG").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 travelrag 的完整配置结构
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Pipeline 检索问答管道配置
	Pipeline PipelineConfig `yaml:"pipeline" env:"PIPELINE"`

	// OpenAI 嵌入与生成服务配置
	OpenAI OpenAIConfig `yaml:"openai" env:"OPENAI"`

	// Pinecone 向量索引配置
	Pinecone PineconeConfig `yaml:"pinecone" env:"PINECONE"`

	// Graph 知识图谱配置
	Graph GraphConfig `yaml:"graph" env:"GRAPH"`

	// Cache 嵌入缓存配置
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Redis 缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 数据库配置（SQL 嵌入缓存 / SQL 图谱）
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每秒请求数限制（0 表示不限流）
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 突发请求数
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// PipelineConfig 管道配置
type PipelineConfig struct {
	// 向量检索 Top-K
	TopK int `yaml:"top_k" env:"TOP_K"`
	// 图谱共现加分
	RerankBoost float64 `yaml:"rerank_boost" env:"RERANK_BOOST"`
	// 上下文中最多保留的匹配数
	MaxMatches int `yaml:"max_matches" env:"MAX_MATCHES"`
	// 上下文中最多保留的图谱事实数
	MaxFacts int `yaml:"max_facts" env:"MAX_FACTS"`
	// 上下文字符预算
	MaxContextChars int `yaml:"max_context_chars" env:"MAX_CONTEXT_CHARS"`
	// 图谱描述截断长度
	MaxDescription int `yaml:"max_description" env:"MAX_DESCRIPTION"`
	// 结果中返回的匹配数 / 事实数
	ResultMatches int `yaml:"result_matches" env:"RESULT_MATCHES"`
	ResultFacts   int `yaml:"result_facts" env:"RESULT_FACTS"`
	// 仅图谱模式下全文检索的种子实体数
	SeedLimit int `yaml:"seed_limit" env:"SEED_LIMIT"`
	// 单次请求超时
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	// 是否生成节点摘要
	Summarize bool `yaml:"summarize" env:"SUMMARIZE"`
	// 回答与摘要的最大 Token 数
	AnswerMaxTokens  int `yaml:"answer_max_tokens" env:"ANSWER_MAX_TOKENS"`
	SummaryMaxTokens int `yaml:"summary_max_tokens" env:"SUMMARY_MAX_TOKENS"`
	// 生成温度
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 检索重试策略
	Retry RetryConfig `yaml:"retry" env:"RETRY"`
}

// RetryConfig 检索阶段的重试配置
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries" env:"MAX_RETRIES"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	MaxDelay     time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
}

// OpenAIConfig OpenAI 兼容服务配置
type OpenAIConfig struct {
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 组织 ID（可选）
	Organization string `yaml:"organization" env:"ORGANIZATION"`
	// 嵌入模型
	EmbeddingModel string `yaml:"embedding_model" env:"EMBEDDING_MODEL"`
	// 嵌入维度，必须与向量索引一致
	Dimensions int `yaml:"dimensions" env:"DIMENSIONS"`
	// 生成模型
	ChatModel string `yaml:"chat_model" env:"CHAT_MODEL"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// PineconeConfig Pinecone 向量索引配置
type PineconeConfig struct {
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 索引名
	Index string `yaml:"index" env:"INDEX"`
	// 命名空间（可选）
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// 数据面地址（可选，为空时通过控制面解析）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 控制面地址
	ControllerBaseURL string `yaml:"controller_base_url" env:"CONTROLLER_BASE_URL"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// GraphConfig 知识图谱配置
type GraphConfig struct {
	// 后端: neo4j, sql
	Backend string `yaml:"backend" env:"BACKEND"`
	// Neo4j 连接
	Neo4j Neo4jConfig `yaml:"neo4j" env:"NEO4J"`
	// 全文索引名
	FullTextIndex string `yaml:"fulltext_index" env:"FULLTEXT_INDEX"`
	// 每个实体最多返回的邻居数
	MaxNeighbors int `yaml:"max_neighbors" env:"MAX_NEIGHBORS"`
	// 并发查询的工作协程数
	Workers int `yaml:"workers" env:"WORKERS"`
	// 任务队列长度
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE"`
}

// Neo4jConfig Neo4j 连接配置
type Neo4jConfig struct {
	URI      string `yaml:"uri" env:"URI"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Database string `yaml:"database" env:"DATABASE"`
	// 连接池大小
	MaxConnectionPoolSize int `yaml:"max_connection_pool_size" env:"MAX_CONNECTION_POOL_SIZE"`
}

// CacheConfig 嵌入缓存配置
type CacheConfig struct {
	// 后端: memory, redis, sql
	Backend string `yaml:"backend" env:"BACKEND"`
	// Redis 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 健康检查间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 时为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// wellKnownEnv 常用的无前缀环境变量，仅在对应字段仍为空时生效
var wellKnownEnv = []struct {
	name string
	set  func(*Config, string)
	get  func(*Config) string
}{
	{"OPENAI_API_KEY", func(c *Config, v string) { c.OpenAI.APIKey = v }, func(c *Config) string { return c.OpenAI.APIKey }},
	{"PINECONE_API_KEY", func(c *Config, v string) { c.Pinecone.APIKey = v }, func(c *Config) string { return c.Pinecone.APIKey }},
	{"NEO4J_URI", func(c *Config, v string) { c.Graph.Neo4j.URI = v }, func(c *Config) string { return c.Graph.Neo4j.URI }},
	{"NEO4J_USER", func(c *Config, v string) { c.Graph.Neo4j.User = v }, func(c *Config) string { return c.Graph.Neo4j.User }},
	{"NEO4J_PASSWORD", func(c *Config, v string) { c.Graph.Neo4j.Password = v }, func(c *Config) string { return c.Graph.Neo4j.Password }},
}

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath   string
	envPrefix    string
	wellKnownEnv bool
	validators   []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:    "TRAVELRAG",
		wellKnownEnv: true,
		validators:   make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithWellKnownEnv 控制是否读取 OPENAI_API_KEY、NEO4J_URI 等无前缀变量
func (l *Loader) WithWellKnownEnv(enabled bool) *Loader {
	l.wellKnownEnv = enabled
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 前缀环境变量 → 无前缀常用变量（仅填空）
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if l.wellKnownEnv {
		for _, e := range wellKnownEnv {
			if e.get(cfg) != "" {
				continue
			}
			if v := os.Getenv(e.name); v != "" {
				e.set(cfg, v)
			}
		}
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// time.Duration 以外的结构体递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
