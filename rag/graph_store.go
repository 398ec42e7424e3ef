package rag

import (
	"context"
	"unicode/utf8"
)

// GraphStore 知识图谱的只读查询接口
type GraphStore interface {
	// Neighbors 返回 id 的一跳邻居，至多 limit 条
	Neighbors(ctx context.Context, id string, limit int) ([]Fact, error)
	// SearchEntities 全文检索实体，按相关度降序
	SearchEntities(ctx context.Context, text string, limit int) ([]GraphEntity, error)
}

// truncateRunes 按字符截断，不会切开多字节字符
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func anyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return metaString(map[string]any{"v": v}, "v")
	}
}

func anyFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return 0
	}
}
