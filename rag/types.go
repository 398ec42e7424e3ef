package rag

import "fmt"

// Intent 查询意图，决定系统提示词
type Intent string

const (
	IntentItinerary      Intent = "itinerary"
	IntentRecommendation Intent = "recommendation"
	IntentFactual        Intent = "factual"
	IntentGeneral        Intent = "general"
)

// Stage 问答管道所处阶段
type Stage string

const (
	StageClassifying     Stage = "classifying"
	StageRetrieving      Stage = "retrieving"
	StageEnriching       Stage = "enriching"
	StageRanking         Stage = "ranking"
	StageContextBuilding Stage = "context_building"
	StageGenerating      Stage = "generating"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

// CacheEntry 一条持久化的嵌入缓存记录
type CacheEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Vector      []float64 `json:"vector"`
}

// Match 向量检索返回的一个候选实体，创建后不再修改
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Name 返回元数据中的 name 字段
func (m Match) Name() string { return metaString(m.Metadata, "name") }

// City 返回元数据中的 city 字段
func (m Match) City() string { return metaString(m.Metadata, "city") }

func metaString(meta map[string]any, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Fact 图谱中一条单跳关系：source -[relation]-> target
type Fact struct {
	SourceID    string `json:"source"`
	Relation    string `json:"rel"`
	TargetID    string `json:"target_id"`
	TargetName  string `json:"target_name"`
	Description string `json:"target_desc"`
}

// RankedResult 融合图谱信号后的匹配
type RankedResult struct {
	Match
	FusedScore float64 `json:"fused_score"`
	Boosted    bool    `json:"boosted"`
}

// GraphEntity 全文检索命中的图谱实体
type GraphEntity struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type,omitempty"`
	Score       float64 `json:"score"`
}
