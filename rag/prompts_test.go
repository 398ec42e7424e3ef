package rag

import (
	"testing"

	"github.com/BaSui01/travelrag/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemPrompt_PerIntent(t *testing.T) {
	seen := map[string]Intent{}
	for _, intent := range []Intent{IntentItinerary, IntentRecommendation, IntentFactual, IntentGeneral} {
		p := SystemPrompt(intent)
		assert.Contains(t, p, "Cite node ids")
		if prev, ok := seen[p]; ok {
			t.Fatalf("intents %s and %s share a prompt", prev, intent)
		}
		seen[p] = intent
	}
	assert.Equal(t, baseSystemPrompt, SystemPrompt("unknown"))
}

func TestAnswerMessages(t *testing.T) {
	msgs := AnswerMessages(IntentItinerary, "User query: q\n\nIntent: itinerary\n")
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "day-by-day")
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Intent: itinerary\n\nProduce:\n1.")
}

func TestSummaryMessages(t *testing.T) {
	assert.Nil(t, SummaryMessages(nil))

	msgs := SummaryMessages([]RankedResult{
		rankedMatch("attraction_1", "Hoan Kiem Lake", "Hanoi", 1),
		rankedMatch("attraction_9", "My Khe Beach", "Da Nang", 0.5),
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, summarySystemPrompt, msgs[0].Content)
	assert.Equal(t, "attraction_1: Hoan Kiem Lake (Hanoi)\nattraction_9: My Khe Beach (Da Nang)", msgs[1].Content)
}
