package rag

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// embeddingCacheRow 对应表 embedding_cache(key TEXT PRIMARY KEY, vec BLOB)
type embeddingCacheRow struct {
	Key string `gorm:"column:key;primaryKey;type:text"`
	Vec []byte `gorm:"column:vec"`
}

func (embeddingCacheRow) TableName() string { return "embedding_cache" }

// SQLEmbeddingCache 基于 GORM 的嵌入缓存，支持 sqlite 与 postgres
type SQLEmbeddingCache struct {
	db *gorm.DB
}

// NewSQLEmbeddingCache 创建 SQL 嵌入缓存并确保表存在
func NewSQLEmbeddingCache(ctx context.Context, db *gorm.DB) (*SQLEmbeddingCache, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.WithContext(ctx).AutoMigrate(&embeddingCacheRow{}); err != nil {
		return nil, fmt.Errorf("create embedding_cache table: %w", err)
	}
	return &SQLEmbeddingCache{db: db}, nil
}

func (c *SQLEmbeddingCache) Get(ctx context.Context, fingerprint string) ([]float64, bool, error) {
	var row embeddingCacheRow
	err := c.db.WithContext(ctx).Where("key = ?", fingerprint).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sql embedding cache get: %w", err)
	}
	vec, err := DecodeVector(row.Vec)
	if err != nil {
		return nil, false, fmt.Errorf("sql embedding cache get %s: %w", fingerprint, err)
	}
	return vec, true, nil
}

// Put 单条 upsert，冲突时覆盖
func (c *SQLEmbeddingCache) Put(ctx context.Context, fingerprint string, vec []float64) error {
	row := embeddingCacheRow{Key: fingerprint, Vec: EncodeVector(vec)}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"vec"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("sql embedding cache put: %w", err)
	}
	return nil
}
