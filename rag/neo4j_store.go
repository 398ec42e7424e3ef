package rag

import (
	"context"
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// DefaultFullTextIndex 实体全文索引名
const DefaultFullTextIndex = "entityFullTextIndex"

const (
	neighborsCypher = `MATCH (n:Entity {id: $id})-[r]-(m:Entity)
RETURN type(r) AS rel, m.id AS id, m.name AS name, m.description AS description
LIMIT $limit`

	neighborsUnlabeledCypher = `MATCH (n {id: $id})-[r]-(m)
RETURN type(r) AS rel, m.id AS id, m.name AS name, m.description AS description
LIMIT $limit`

	fullTextCypher = `CALL db.index.fulltext.queryNodes($index, $q) YIELD node, score
RETURN node.id AS id, node.name AS name, node.description AS description, node.type AS type, score
LIMIT $limit`

	containsCypher = `MATCH (n:Entity)
WHERE toLower(n.name) CONTAINS toLower($q)
RETURN n.id AS id, n.name AS name, n.description AS description, n.type AS type, 1.0 AS score
LIMIT $limit`
)

// cypherRunner 执行一条只读 Cypher 并返回记录
type cypherRunner func(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)

// Neo4jConfig 配置 Neo4jGraphStore
type Neo4jConfig struct {
	URI                   string
	User                  string
	Password              string
	Database              string
	FullTextIndex         string
	MaxConnectionPoolSize int
}

// Neo4jGraphStore 基于 Neo4j 的图谱查询
type Neo4jGraphStore struct {
	driver neo4j.DriverWithContext
	run    cypherRunner
	index  string
	logger *zap.Logger
}

// NewNeo4jDriver 创建驱动；调用方负责 Close
func NewNeo4jDriver(cfg Neo4jConfig) (neo4j.DriverWithContext, error) {
	return neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
		})
}

// NewNeo4jGraphStore 包装一个已建立的驱动
func NewNeo4jGraphStore(driver neo4j.DriverWithContext, cfg Neo4jConfig, logger *zap.Logger) *Neo4jGraphStore {
	database := cfg.Database
	run := func(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
		opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
		if database != "" {
			opts = append(opts, neo4j.ExecuteQueryWithDatabase(database))
		}
		res, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer, opts...)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(res.Records))
		for _, rec := range res.Records {
			rows = append(rows, rec.AsMap())
		}
		return rows, nil
	}
	s := newNeo4jGraphStore(run, cfg, logger)
	s.driver = driver
	return s
}

func newNeo4jGraphStore(run cypherRunner, cfg Neo4jConfig, logger *zap.Logger) *Neo4jGraphStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	index := cfg.FullTextIndex
	if index == "" {
		index = DefaultFullTextIndex
	}
	return &Neo4jGraphStore{
		run:    run,
		index:  index,
		logger: logger.With(zap.String("component", "neo4j_graph_store")),
	}
}

// Neighbors 查询一跳邻居。标签查询遇到 schema 错误或没有结果时退回无标签查询，
// 未导入 Entity 标签的库对未知标签不报错，只返回空结果。
func (s *Neo4jGraphStore) Neighbors(ctx context.Context, id string, limit int) ([]Fact, error) {
	if limit <= 0 {
		return nil, nil
	}
	params := map[string]any{"id": id, "limit": limit}

	rows, err := s.run(ctx, neighborsCypher, params)
	switch {
	case err != nil && isNeo4jSchemaError(err):
		s.logger.Warn("labeled neighbor query failed, retrying without labels",
			zap.String("id", id), zap.Error(err))
		rows, err = s.run(ctx, neighborsUnlabeledCypher, params)
	case err == nil && len(rows) == 0:
		s.logger.Debug("labeled neighbor query returned nothing, retrying without labels",
			zap.String("id", id))
		rows, err = s.run(ctx, neighborsUnlabeledCypher, params)
	}
	if err != nil {
		return nil, err
	}

	facts := make([]Fact, 0, len(rows))
	for _, row := range rows {
		facts = append(facts, Fact{
			SourceID:    id,
			Relation:    anyString(row["rel"]),
			TargetID:    anyString(row["id"]),
			TargetName:  anyString(row["name"]),
			Description: anyString(row["description"]),
		})
	}
	return facts, nil
}

// SearchEntities 用全文索引检索实体；索引缺失时退回 CONTAINS 扫描
func (s *Neo4jGraphStore) SearchEntities(ctx context.Context, text string, limit int) ([]GraphEntity, error) {
	text = strings.TrimSpace(text)
	if text == "" || limit <= 0 {
		return nil, nil
	}

	rows, err := s.run(ctx, fullTextCypher, map[string]any{
		"index": s.index,
		"q":     escapeLucene(text),
		"limit": limit,
	})
	if err != nil && isNeo4jSchemaError(err) {
		s.logger.Warn("fulltext index unavailable, falling back to CONTAINS",
			zap.String("index", s.index), zap.Error(err))
		rows, err = s.run(ctx, containsCypher, map[string]any{"q": text, "limit": limit})
	}
	if err != nil {
		return nil, err
	}

	out := make([]GraphEntity, 0, len(rows))
	for _, row := range rows {
		id := anyString(row["id"])
		if id == "" {
			continue
		}
		out = append(out, GraphEntity{
			ID:          id,
			Name:        anyString(row["name"]),
			Description: anyString(row["description"]),
			Type:        anyString(row["type"]),
			Score:       anyFloat(row["score"]),
		})
	}
	return out, nil
}

// Ping 校验与 Neo4j 的连通性
func (s *Neo4jGraphStore) Ping(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.VerifyConnectivity(ctx)
}

// Close 关闭底层驱动
func (s *Neo4jGraphStore) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

func isNeo4jSchemaError(err error) bool {
	var nerr *neo4j.Neo4jError
	if !errors.As(err, &nerr) {
		return false
	}
	return strings.HasPrefix(nerr.Code, "Neo.ClientError.Procedure.") ||
		strings.HasPrefix(nerr.Code, "Neo.ClientError.Schema.")
}

var luceneReplacer = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `!`, `\!`, `(`, `\(`, `)`, `\)`,
	`{`, `\{`, `}`, `\}`, `[`, `\[`, `]`, `\]`, `^`, `\^`, `"`, `\"`,
	`~`, `\~`, `*`, `\*`, `?`, `\?`, `:`, `\:`, `/`, `\/`, `&`, `\&`, `|`, `\|`,
)

// escapeLucene 转义 Lucene 查询语法中的特殊字符
func escapeLucene(s string) string {
	return luceneReplacer.Replace(s)
}
