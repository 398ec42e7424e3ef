package config

import (
	"fmt"
	"strings"

	"github.com/BaSui01/travelrag/types"
)

// Validate 验证配置，缺少任何凭据或端点时返回 CONFIGURATION 错误。
// 启动阶段调用；服务绝不能在部分配置的状态下运行。
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}

	if c.OpenAI.APIKey == "" {
		errs = append(errs, "openai.api_key is required")
	}
	if c.OpenAI.Dimensions <= 0 {
		errs = append(errs, "openai.dimensions must be positive")
	}
	if c.Pinecone.APIKey == "" {
		errs = append(errs, "pinecone.api_key is required")
	}
	if c.Pinecone.Index == "" && c.Pinecone.BaseURL == "" {
		errs = append(errs, "pinecone.index or pinecone.base_url is required")
	}

	switch c.Graph.Backend {
	case "neo4j":
		if c.Graph.Neo4j.URI == "" {
			errs = append(errs, "graph.neo4j.uri is required")
		}
		if c.Graph.Neo4j.User == "" {
			errs = append(errs, "graph.neo4j.user is required")
		}
		if c.Graph.Neo4j.Password == "" {
			errs = append(errs, "graph.neo4j.password is required")
		}
	case "sql":
		errs = append(errs, c.Database.problems("graph")...)
	default:
		errs = append(errs, fmt.Sprintf("unknown graph.backend %q", c.Graph.Backend))
	}
	if c.Graph.Workers <= 0 {
		errs = append(errs, "graph.workers must be positive")
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, "redis.addr is required for the redis cache")
		}
	case "sql":
		// 图谱也走 SQL 时已经检查过
		if c.Graph.Backend != "sql" {
			errs = append(errs, c.Database.problems("cache")...)
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown cache.backend %q", c.Cache.Backend))
	}

	p := c.Pipeline
	if p.TopK < 1 {
		errs = append(errs, "pipeline.top_k must be at least 1")
	}
	if p.RerankBoost < 0 {
		errs = append(errs, "pipeline.rerank_boost must not be negative")
	}
	if p.MaxMatches < 0 || p.MaxFacts < 0 || p.MaxContextChars <= 0 || p.MaxDescription <= 0 {
		errs = append(errs, "pipeline context limits must be positive")
	}
	if p.RequestTimeout <= 0 {
		errs = append(errs, "pipeline.request_timeout must be positive")
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		errs = append(errs, "pipeline.temperature must be between 0 and 2")
	}

	if len(errs) > 0 {
		return types.NewError(types.ErrConfiguration,
			fmt.Sprintf("config validation errors: %s", strings.Join(errs, "; ")))
	}
	return nil
}

func (d *DatabaseConfig) problems(owner string) []string {
	switch d.Driver {
	case "sqlite":
		if d.Name == "" {
			return []string{fmt.Sprintf("database.name is required for the %s sqlite backend", owner)}
		}
	case "postgres":
		var out []string
		if d.Host == "" {
			out = append(out, "database.host is required")
		}
		if d.User == "" {
			out = append(out, "database.user is required")
		}
		if d.Name == "" {
			out = append(out, "database.name is required")
		}
		return out
	default:
		return []string{fmt.Sprintf("unsupported database.driver %q", d.Driver)}
	}
	return nil
}
