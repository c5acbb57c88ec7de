package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// repeat builds a history of n copies of choice c
func repeat(c Choice, n int) []Choice {
	history := make([]Choice, n)
	for i := range history {
		history[i] = c
	}
	return history
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		history []Choice
		ours    []Choice
		want    Archetype
	}{
		{"too few moves", repeat(Cooperate, 2), nil, Unknown},
		{"cooperative", repeat(Cooperate, 10), nil, Cooperative},
		{"hostile", repeat(Betray, 10), nil, Hostile},
		{
			// 60–80% cooperation with a trailing cooperation streak
			"forgiving",
			[]Choice{Betray, Betray, Cooperate, Betray, Cooperate,
				Cooperate, Cooperate},
			nil,
			Forgiving,
		},
		{
			"vengeful",
			[]Choice{Cooperate, Cooperate, Betray, Cooperate, Betray,
				Betray, Betray},
			nil,
			Vengeful,
		},
		{
			// Balanced rate, each of their moves echoes our previous
			"tit for tat",
			[]Choice{Cooperate, Betray, Cooperate, Betray},
			[]Choice{Betray, Cooperate, Betray, Cooperate},
			TitForTat,
		},
		{
			"random",
			[]Choice{Cooperate, Betray, Cooperate, Betray},
			[]Choice{Cooperate, Cooperate, Cooperate, Cooperate},
			Random,
		},
		{
			// ~67% cooperation, short streaks: none of the rules fire
			"mixed",
			[]Choice{Cooperate, Cooperate, Betray, Cooperate, Betray,
				Cooperate},
			nil,
			Mixed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.history, tt.ours))
		})
	}
}

func TestClassifyTitForTatNeedsOurHistory(t *testing.T) {
	history := []Choice{Cooperate, Betray, Cooperate, Betray}

	// Without our own aligned moves the mirror check cannot fire
	assert.Equal(t, Random, Classify(history, nil))
}

func TestArchetypeString(t *testing.T) {
	assert.Equal(t, "tit_for_tat", TitForTat.String())
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "Archetype(42)", Archetype(42).String())
}
