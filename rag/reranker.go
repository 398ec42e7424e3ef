package rag

import "sort"

// DefaultRerankBoost 被图谱事实引用的匹配获得的加分
const DefaultRerankBoost = 0.15

// Reranker 用图谱信号调整向量分数。纯函数，无 I/O。
type Reranker struct {
	Boost float64
}

// Rerank 对出现在事实目标中的匹配加一次 Boost，再按融合分数降序稳定排序
func (r Reranker) Rerank(matches []Match, facts []Fact) []RankedResult {
	targets := make(map[string]struct{}, len(facts))
	for _, f := range facts {
		targets[f.TargetID] = struct{}{}
	}

	ranked := make([]RankedResult, 0, len(matches))
	for _, m := range matches {
		rr := RankedResult{Match: m, FusedScore: m.Score}
		if _, ok := targets[m.ID]; ok {
			rr.FusedScore += r.Boost
			rr.Boosted = true
		}
		ranked = append(ranked, rr)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FusedScore > ranked[j].FusedScore
	})
	return ranked
}
