package rag

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestIntentClassifier_Classify(t *testing.T) {
	c := NewIntentClassifier(nil)

	tests := []struct {
		query string
		want  Intent
	}{
		{"Plan a 3-day trip to Hanoi", IntentItinerary},
		{"Create an itinerary for Sapa", IntentItinerary},
		{"What are the best pho places?", IntentRecommendation},
		{"Where to eat in Hoi An", IntentRecommendation},
		{"Who built the Temple of Literature", IntentFactual},
		{"HISTORY of Hue", IntentFactual},
		{"Holiday in Da Nang", IntentGeneral},
		{"Hello there", IntentGeneral},
		{"", IntentGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.query))
		})
	}
}

func TestIntentClassifier_CustomRules(t *testing.T) {
	c := NewIntentClassifier([]IntentRule{
		{Intent: IntentFactual, Keywords: []string{"  Opening Hours "}},
	})
	assert.Equal(t, IntentFactual, c.Classify("opening hours of the museum"))
	assert.Equal(t, IntentGeneral, c.Classify("plan a trip"), "custom rules replace defaults")
}

func TestProperty_IntentClassification(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	c := NewIntentClassifier(nil)

	valid := map[Intent]bool{
		IntentItinerary: true, IntentRecommendation: true, IntentFactual: true, IntentGeneral: true,
	}

	properties.Property("always returns one of the known intents", prop.ForAll(
		func(q string) bool {
			return valid[c.Classify(q)]
		},
		gen.AnyString(),
	))

	properties.Property("classification ignores case", prop.ForAll(
		func(q string) bool {
			return c.Classify(q) == c.Classify(strings.ToUpper(q))
		},
		gen.AlphaString(),
	))

	properties.Property("itinerary keywords take priority", prop.ForAll(
		func(q string) bool {
			return c.Classify("best "+q+" plan") == IntentItinerary
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
