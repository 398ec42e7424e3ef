package rag

import (
	"strings"
	"unicode"
)

// IntentRule 一条意图规则，任一关键词命中即归为该意图
type IntentRule struct {
	Intent   Intent
	Keywords []string
}

// DefaultIntentRules 按优先级排列；先命中者胜出
var DefaultIntentRules = []IntentRule{
	{Intent: IntentItinerary, Keywords: []string{"itinerary", "plan", "trip", "day", "days", "schedule", "route"}},
	{Intent: IntentRecommendation, Keywords: []string{"best", "recommend", "suggest", "top", "where to", "should i"}},
	{Intent: IntentFactual, Keywords: []string{"what", "when", "who", "how", "history", "why", "which"}},
}

// IntentClassifier 基于有序关键词表的意图分类器，无 I/O
type IntentClassifier struct {
	rules []IntentRule
}

// NewIntentClassifier 创建分类器，rules 为空时使用 DefaultIntentRules
func NewIntentClassifier(rules []IntentRule) *IntentClassifier {
	if len(rules) == 0 {
		rules = DefaultIntentRules
	}
	cp := make([]IntentRule, len(rules))
	for i, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = normalizeWords(k); k != "" {
				kws = append(kws, k)
			}
		}
		cp[i] = IntentRule{Intent: r.Intent, Keywords: kws}
	}
	return &IntentClassifier{rules: cp}
}

// Classify 返回第一条命中规则的意图，均未命中时返回 general。
// 关键词按整词或整短语匹配。
func (c *IntentClassifier) Classify(query string) Intent {
	q := " " + normalizeWords(query) + " "
	for _, r := range c.rules {
		for _, k := range r.Keywords {
			if strings.Contains(q, " "+k+" ") {
				return r.Intent
			}
		}
	}
	return IntentGeneral
}

// normalizeWords 小写并把非字母数字字符折叠为单个空格
func normalizeWords(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
