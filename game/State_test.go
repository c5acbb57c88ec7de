package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeaturizeEmptyHistory(t *testing.T) {
	state := Featurize(nil, 1, 20)

	require.Len(t, state, StateDim)
	assert.InDelta(t, 0.05, state[0], 1e-12) // round / maxRounds
	assert.Equal(t, 0.5, state[1])           // cooperation rate default
	assert.Equal(t, 0.5, state[2])           // betrayal rate default
	assert.Zero(t, state[3])
	assert.Zero(t, state[4])
	assert.Zero(t, state[5])
}

func TestFeaturize(t *testing.T) {
	history := []Choice{Betray, Cooperate, Cooperate, Cooperate}

	state := Featurize(history, 10, 20)

	require.Len(t, state, StateDim)
	assert.InDelta(t, 0.5, state[0], 1e-12)
	assert.InDelta(t, 0.75, state[1], 1e-12)
	assert.InDelta(t, 0.25, state[2], 1e-12)
	assert.InDelta(t, 3.0/5.0, state[3], 1e-12) // trailing cooperations
	assert.Zero(t, state[4])
	assert.Zero(t, state[5])
}

func TestFeaturizeStreakCap(t *testing.T) {
	history := make([]Choice, 9)
	for i := range history {
		history[i] = Betray
	}

	state := Featurize(history, 3, 20)

	assert.Zero(t, state[3])
	assert.Equal(t, 1.0, state[4]) // capped at 5 consecutive
}

func TestFeaturizeLastRoundFlag(t *testing.T) {
	assert.Zero(t, Featurize(nil, 18, 20)[5])
	assert.Equal(t, 1.0, Featurize(nil, 19, 20)[5])
	assert.Equal(t, 1.0, Featurize(nil, 20, 20)[5])
}

func TestStreaks(t *testing.T) {
	tests := []struct {
		name          string
		history       []Choice
		wantCooperate int
		wantBetray    int
	}{
		{"empty", nil, 0, 0},
		{"single cooperate", []Choice{Cooperate}, 1, 0},
		{"trailing cooperations", []Choice{Betray, Cooperate, Cooperate},
			2, 0},
		{"trailing betrayals",
			[]Choice{Cooperate, Cooperate, Betray, Betray, Betray}, 0, 3},
		{"alternating", []Choice{Cooperate, Betray, Cooperate}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cooperate, betray := Streaks(tt.history)
			assert.Equal(t, tt.wantCooperate, cooperate)
			assert.Equal(t, tt.wantBetray, betray)
		})
	}
}
