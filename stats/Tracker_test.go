package stats

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustpvp/botgo/game"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestTrackerCounters(t *testing.T) {
	tracker := NewTracker(testLogger(), "", nil)

	tracker.RecordDecision(game.Cooperate)
	tracker.RecordDecision(game.Cooperate)
	tracker.RecordDecision(game.Betray)
	tracker.RecordRound(0.5)
	tracker.RecordRound(1.5)
	tracker.RecordGame(7)

	assert.Equal(t, 1, tracker.Games())
	assert.Equal(t, 2, tracker.Rounds())
	assert.InDelta(t, 2.0/3.0, tracker.CooperationRate(), 1e-12)
	assert.InDelta(t, 1.0, tracker.MeanReward(100), 1e-12)
	assert.InDelta(t, 7.0, tracker.MeanScore(100), 1e-12)
}

func TestTrackerCooperationRateBeforeAnyDecision(t *testing.T) {
	tracker := NewTracker(testLogger(), "", nil)
	assert.Zero(t, tracker.CooperationRate())
}

func TestMeanRewardWindowsTail(t *testing.T) {
	tracker := NewTracker(testLogger(), "", nil)
	for _, reward := range []float64{10, 1, 2, 3} {
		tracker.RecordRound(reward)
	}
	assert.InDelta(t, 2.0, tracker.MeanReward(3), 1e-12)
}

func TestTrackerMirrorsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	tracker := NewTracker(testLogger(), "", metrics)

	tracker.RecordDecision(game.Betray)
	tracker.RecordArchetype(game.Hostile)
	tracker.RecordRound(2.0)
	tracker.RecordGame(42)

	assert.Equal(t, 1.0,
		testutil.ToFloat64(metrics.decisions.WithLabelValues("betray")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(metrics.archetypes.WithLabelValues("hostile")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rounds))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.games))
	assert.Equal(t, 42.0, testutil.ToFloat64(metrics.finalScore))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.meanReward))
}

func TestWritePlots(t *testing.T) {
	dir := t.TempDir()
	tracker := NewTracker(testLogger(), "", nil)

	for i := 0; i < 5; i++ {
		tracker.RecordRound(float64(i))
	}
	tracker.RecordGame(3)
	tracker.RecordGame(5)

	require.NoError(t, tracker.WritePlots(dir))

	for _, file := range []string{"rewards.png", "scores.png"} {
		info, err := os.Stat(filepath.Join(dir, file))
		require.NoError(t, err, file)
		assert.Greater(t, info.Size(), int64(0), file)
	}
}

func TestWritePlotsSkipsShortSeries(t *testing.T) {
	dir := t.TempDir()
	tracker := NewTracker(testLogger(), "", nil)
	tracker.RecordRound(1.0)

	require.NoError(t, tracker.WritePlots(dir))

	_, err := os.Stat(filepath.Join(dir, "rewards.png"))
	assert.True(t, os.IsNotExist(err))
}
