package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalEvictsOldestWhenFull(t *testing.T) {
	journal := NewJournal(3)

	for i := 1; i <= 5; i++ {
		journal.Add(Experience{Reward: float64(i)})
	}

	require.Equal(t, 3, journal.Len())
	assert.Equal(t, 3, journal.Cap())
	assert.Equal(t, 3.0, journal.At(0).Reward)
	assert.Equal(t, 5.0, journal.At(2).Reward)
}

func TestJournalMeanReward(t *testing.T) {
	journal := NewJournal(10)
	assert.Zero(t, journal.MeanReward(100))

	for _, reward := range []float64{1, 2, 3, 4} {
		journal.Add(Experience{Reward: reward})
	}

	assert.InDelta(t, 2.5, journal.MeanReward(100), 1e-12)
	assert.InDelta(t, 3.5, journal.MeanReward(2), 1e-12)
}

func TestJournalMeanRewardAfterWraparound(t *testing.T) {
	journal := NewJournal(2)

	for _, reward := range []float64{10, 20, 30} {
		journal.Add(Experience{Reward: reward})
	}

	assert.InDelta(t, 25.0, journal.MeanReward(100), 1e-12)
}

func TestJournalPanics(t *testing.T) {
	require.Panics(t, func() { NewJournal(0) })

	journal := NewJournal(2)
	journal.Add(Experience{})
	require.Panics(t, func() { journal.At(1) })
}
