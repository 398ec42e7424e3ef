package rag

import (
	"fmt"
	"strings"

	"github.com/BaSui01/travelrag/llm"
)

const baseSystemPrompt = "You are an expert Vietnam travel assistant. Use vector results + graph facts. " +
	"Provide practical, concise answers. Cite node ids when referencing attractions."

var intentInstructions = map[Intent]string{
	IntentItinerary:      "Build a realistic day-by-day itinerary grouped by city and keep travel time between stops reasonable.",
	IntentRecommendation: "Rank your recommendations and say in one line why each one fits the request.",
	IntentFactual:        "Answer the question directly first, then add supporting detail from the graph facts.",
}

const answerInstructions = `Produce:
1. A short chain-of-thought reasoning (2 sentences).
2. Final answer with tips.
3. If itinerary: produce day-by-day plan.`

const summarySystemPrompt = "Summarize these travel nodes in 2-3 short sentences."

// SystemPrompt 返回意图对应的系统提示词
func SystemPrompt(intent Intent) string {
	if extra, ok := intentInstructions[intent]; ok {
		return baseSystemPrompt + " " + extra
	}
	return baseSystemPrompt
}

// AnswerMessages 组装生成回答的消息
func AnswerMessages(intent Intent, context string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt(intent)},
		{Role: llm.RoleUser, Content: strings.TrimRight(context, "\n") + "\n\n" + answerInstructions},
	}
}

// SummaryMessages 组装节点摘要的消息；没有匹配时返回 nil
func SummaryMessages(ranked []RankedResult) []llm.Message {
	if len(ranked) == 0 {
		return nil
	}
	lines := make([]string, 0, len(ranked))
	for _, r := range ranked {
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", r.ID, r.Name(), r.City()))
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: summarySystemPrompt},
		{Role: llm.RoleUser, Content: strings.Join(lines, "\n")},
	}
}
