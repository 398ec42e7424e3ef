package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const graphFTSTable = "graph_entities_fts"

// graphEntityRow 对应表 graph_entities
type graphEntityRow struct {
	ID          string `gorm:"column:id;primaryKey;type:text"`
	Name        string `gorm:"column:name;index"`
	Description string `gorm:"column:description"`
	Type        string `gorm:"column:type"`
	City        string `gorm:"column:city"`
}

func (graphEntityRow) TableName() string { return "graph_entities" }

// graphRelationRow 对应表 graph_relations，一行一条有向边
type graphRelationRow struct {
	SourceID string `gorm:"column:source_id;primaryKey;type:text"`
	TargetID string `gorm:"column:target_id;primaryKey;type:text;index"`
	Relation string `gorm:"column:relation;primaryKey;type:text"`
}

func (graphRelationRow) TableName() string { return "graph_relations" }

// SQLGraphStore 把图谱存放在两张关系表里，sqlite 与 postgres 通用
type SQLGraphStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSQLGraphStore 创建 SQL 图谱存储
func NewSQLGraphStore(db *gorm.DB, logger *zap.Logger) *SQLGraphStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLGraphStore{
		db:     db,
		logger: logger.With(zap.String("component", "sql_graph_store")),
	}
}

// EnsureSchema 建表；sqlite 下额外尝试创建 FTS5 虚表，不支持时仅记录日志
func (s *SQLGraphStore) EnsureSchema(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&graphEntityRow{}, &graphRelationRow{}); err != nil {
		return fmt.Errorf("migrate graph tables: %w", err)
	}
	if s.dialect() == "sqlite" {
		err := db.Exec(fmt.Sprintf(
			"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(id UNINDEXED, name, description)", graphFTSTable)).Error
		if err != nil {
			s.logger.Warn("fts5 unavailable, entity search will use LIKE", zap.Error(err))
		}
	}
	return nil
}

// GraphEdge 导入用的一条关系
type GraphEdge struct {
	SourceID string
	TargetID string
	Relation string
}

// GraphNode 导入用的一个实体
type GraphNode struct {
	ID          string
	Name        string
	Description string
	Type        string
	City        string
}

// Import 在一个事务内 upsert 实体与关系，并同步全文索引
func (s *SQLGraphStore) Import(ctx context.Context, nodes []GraphNode, edges []GraphEdge) error {
	if len(nodes) == 0 && len(edges) == 0 {
		return nil
	}
	useFTS := s.dialect() == "sqlite" && s.db.Migrator().HasTable(graphFTSTable)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(nodes) > 0 {
			rows := make([]graphEntityRow, 0, len(nodes))
			ids := make([]string, 0, len(nodes))
			for _, n := range nodes {
				rows = append(rows, graphEntityRow(n))
				ids = append(ids, n.ID)
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "description", "type", "city"}),
			}).Create(&rows).Error
			if err != nil {
				return fmt.Errorf("upsert graph entities: %w", err)
			}

			if useFTS {
				if err := tx.Exec("DELETE FROM "+graphFTSTable+" WHERE id IN ?", ids).Error; err != nil {
					return fmt.Errorf("sync fts: %w", err)
				}
				for _, n := range nodes {
					err := tx.Exec("INSERT INTO "+graphFTSTable+" (id, name, description) VALUES (?, ?, ?)",
						n.ID, n.Name, n.Description).Error
					if err != nil {
						return fmt.Errorf("sync fts: %w", err)
					}
				}
			}
		}

		if len(edges) > 0 {
			rows := make([]graphRelationRow, 0, len(edges))
			for _, e := range edges {
				rows = append(rows, graphRelationRow(e))
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
				return fmt.Errorf("insert graph relations: %w", err)
			}
		}
		return nil
	})
}

type neighborRow struct {
	Rel         string
	ID          string
	Name        string
	Description string
}

// Neighbors 返回两个方向上的一跳邻居
func (s *SQLGraphStore) Neighbors(ctx context.Context, id string, limit int) ([]Fact, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []neighborRow
	err := s.db.WithContext(ctx).Raw(`
SELECT r.relation AS rel, e.id AS id, e.name AS name, e.description AS description
FROM graph_relations r
JOIN graph_entities e
  ON e.id = CASE WHEN r.source_id = ? THEN r.target_id ELSE r.source_id END
WHERE r.source_id = ? OR r.target_id = ?
ORDER BY r.relation, e.id
LIMIT ?`, id, id, id, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query neighbors of %s: %w", id, err)
	}

	facts := make([]Fact, 0, len(rows))
	for _, r := range rows {
		facts = append(facts, Fact{
			SourceID:    id,
			Relation:    r.Rel,
			TargetID:    r.ID,
			TargetName:  r.Name,
			Description: r.Description,
		})
	}
	return facts, nil
}

type entityRow struct {
	ID          string
	Name        string
	Description string
	Type        string
	Score       float64
}

// SearchEntities 全文检索；索引不可用时退回 LIKE
func (s *SQLGraphStore) SearchEntities(ctx context.Context, text string, limit int) ([]GraphEntity, error) {
	text = strings.TrimSpace(text)
	if text == "" || limit <= 0 {
		return nil, nil
	}
	db := s.db.WithContext(ctx)

	var rows []entityRow
	var err error
	switch s.dialect() {
	case "sqlite":
		err = db.Raw(`
SELECT e.id AS id, e.name AS name, e.description AS description, e.type AS type, -bm25(`+graphFTSTable+`) AS score
FROM `+graphFTSTable+` f
JOIN graph_entities e ON e.id = f.id
WHERE `+graphFTSTable+` MATCH ?
ORDER BY score DESC
LIMIT ?`, ftsQuery(text), limit).Scan(&rows).Error
	case "postgres":
		err = db.Raw(`
SELECT id, name, description, type,
  ts_rank(to_tsvector('simple', name || ' ' || coalesce(description, '')), plainto_tsquery('simple', ?)) AS score
FROM graph_entities
WHERE to_tsvector('simple', name || ' ' || coalesce(description, '')) @@ plainto_tsquery('simple', ?)
ORDER BY score DESC
LIMIT ?`, text, text, limit).Scan(&rows).Error
	default:
		err = errNoFullText
	}

	if err != nil {
		if !isMissingSearchIndex(err) {
			return nil, fmt.Errorf("search entities: %w", err)
		}
		s.logger.Debug("full-text search unavailable, falling back to LIKE", zap.Error(err))
		rows = nil
		pattern := "%" + strings.ToLower(text) + "%"
		err = db.Raw(`
SELECT id, name, description, type, 1.0 AS score
FROM graph_entities
WHERE lower(name) LIKE ? OR lower(description) LIKE ?
ORDER BY name
LIMIT ?`, pattern, pattern, limit).Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("search entities: %w", err)
		}
	}

	out := make([]GraphEntity, 0, len(rows))
	for _, r := range rows {
		out = append(out, GraphEntity(r))
	}
	return out, nil
}

// Ping 检查数据库连通性
func (s *SQLGraphStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLGraphStore) dialect() string {
	if s.db == nil || s.db.Dialector == nil {
		return ""
	}
	return s.db.Dialector.Name()
}

var errNoFullText = errors.New("full-text search does not exist for this dialect")

func isMissingSearchIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "no such module") ||
		strings.Contains(msg, "does not exist")
}

// ftsQuery 把每个词加引号后用 OR 连接，避免 FTS5 语法错误
func ftsQuery(text string) string {
	words := strings.Fields(text)
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, `"`+strings.ReplaceAll(w, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}
