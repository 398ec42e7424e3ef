package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	matchesHeader = "Top semantic matches:"
	factsHeader   = "Graph facts:"

	// 描述收缩的下限，低于此长度改为丢弃条目
	minDescriptionRunes = 40
	ellipsis            = "..."
)

// ContextBuilder 把排序结果与图谱事实拼成有长度上限的提示词上下文
type ContextBuilder struct {
	MaxMatches int
	MaxFacts   int
	MaxChars   int
}

// Build 渲染上下文。没有条目的段落整体省略。
// 超出 MaxChars 时先缩短事实描述，再从末尾丢弃事实，最后丢弃匹配；
// 保留下来的行结构完整。
func (b ContextBuilder) Build(query string, ranked []RankedResult, facts []Fact, intent Intent) string {
	if b.MaxMatches >= 0 && len(ranked) > b.MaxMatches {
		ranked = ranked[:b.MaxMatches]
	}
	if b.MaxFacts >= 0 && len(facts) > b.MaxFacts {
		facts = facts[:b.MaxFacts]
	}

	descCap := 0
	for _, f := range facts {
		if n := utf8.RuneCountInString(f.Description); n > descCap {
			descCap = n
		}
	}

	out := b.render(query, ranked, facts, intent, descCap)
	if b.MaxChars <= 0 {
		return out
	}

	for b.over(out) && descCap > minDescriptionRunes {
		descCap = max(descCap/2, minDescriptionRunes)
		out = b.render(query, ranked, facts, intent, descCap)
	}
	for b.over(out) && len(facts) > 0 {
		facts = facts[:len(facts)-1]
		out = b.render(query, ranked, facts, intent, descCap)
	}
	for b.over(out) && len(ranked) > 0 {
		ranked = ranked[:len(ranked)-1]
		out = b.render(query, ranked, facts, intent, descCap)
	}
	return out
}

func (b ContextBuilder) over(s string) bool {
	return utf8.RuneCountInString(s) > b.MaxChars
}

func (b ContextBuilder) render(query string, ranked []RankedResult, facts []Fact, intent Intent, descCap int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User query: %s\n", query)

	if len(ranked) > 0 {
		sb.WriteString("\n" + matchesHeader + "\n")
		for _, r := range ranked {
			sb.WriteString(MatchLine(r.Match))
			sb.WriteByte('\n')
		}
	}

	if len(facts) > 0 {
		sb.WriteString("\n" + factsHeader + "\n")
		for _, f := range facts {
			f.Description = shorten(f.Description, descCap)
			sb.WriteString(FactLine(f))
			sb.WriteByte('\n')
		}
	}

	fmt.Fprintf(&sb, "\nIntent: %s\n", intent)
	return sb.String()
}

// MatchLine 渲染 "- id | name | city"
func MatchLine(m Match) string {
	return fmt.Sprintf("- %s | %s | %s", m.ID, m.Name(), m.City())
}

// FactLine 渲染 "- (source) -[relation]-> (target) name: description"
func FactLine(f Fact) string {
	return fmt.Sprintf("- (%s) -[%s]-> (%s) %s: %s", f.SourceID, f.Relation, f.TargetID, f.TargetName, f.Description)
}

func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= len(ellipsis) {
		return truncateRunes(s, n)
	}
	return truncateRunes(s, n-len(ellipsis)) + ellipsis
}
