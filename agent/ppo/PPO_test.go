package ppo

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustpvp/botgo/agent"
	"github.com/trustpvp/botgo/network"
)

var _ agent.Agent = (*PPO)(nil)

func testConfig() Config {
	config := DefaultConfig()
	config.HiddenSizes = []int{16, 16}
	config.BatchSize = 8
	config.Epochs = 2
	config.Seed = 13
	return config
}

func newTestAgent(t *testing.T) *PPO {
	t.Helper()
	agent, err := New(6, 2, testConfig())
	require.NoError(t, err)
	return agent
}

// snapshot copies the current weight values of a network
func snapshot(net network.NeuralNet) [][]float64 {
	var weights [][]float64
	for _, node := range net.Learnables() {
		data := node.Value().Data().([]float64)
		weights = append(weights, append([]float64{}, data...))
	}
	return weights
}

func probeState() []float64 {
	return []float64{0.5, 0.6, 0.4, 0.2, 0.0, 0.0}
}

// fillEpisode records one short trajectory ending in a terminal
// transition.
func fillEpisode(agent *PPO, steps int) {
	state := probeState()
	for i := 0; i < steps; i++ {
		action, logProb, value := agent.Act(state)
		agent.Remember(state, action, logProb, value, 0.4, i == steps-1)
	}
}

func TestProbabilitiesSumToOne(t *testing.T) {
	agent := newTestAgent(t)

	states := [][]float64{
		probeState(),
		{0.0, 0.5, 0.5, 0.0, 0.0, 0.0},
		{1.0, 0.9, 0.1, 1.0, 0.0, 1.0},
	}
	for _, state := range states {
		probs := agent.Probabilities(state)
		require.Len(t, probs, 2)

		sum := 0.0
		for _, p := range probs {
			assert.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
}

func TestActContract(t *testing.T) {
	agent := newTestAgent(t)

	for i := 0; i < 25; i++ {
		action, logProb, value := agent.Act(probeState())

		assert.Contains(t, []int{0, 1}, action)
		assert.LessOrEqual(t, logProb, 0.0)
		assert.False(t, math.IsNaN(logProb) || math.IsInf(logProb, 0))
		assert.False(t, math.IsNaN(value) || math.IsInf(value, 0))
	}
}

func TestActPanicsOnShapeMismatch(t *testing.T) {
	agent := newTestAgent(t)

	require.Panics(t, func() { agent.Act([]float64{1, 2, 3}) })
	require.Panics(t, func() { agent.Probabilities(nil) })
}

func TestLearnEmptyBufferIsNoOp(t *testing.T) {
	agent := newTestAgent(t)

	policyBefore := snapshot(agent.trainPolicy)
	valueBefore := snapshot(agent.trainValueFn)

	agent.Learn()

	assert.Equal(t, 0, agent.BufferLen())
	assert.Equal(t, policyBefore, snapshot(agent.trainPolicy))
	assert.Equal(t, valueBefore, snapshot(agent.trainValueFn))
}

func TestLearnDrainsBufferAndUpdatesWeights(t *testing.T) {
	agent := newTestAgent(t)
	fillEpisode(agent, 12)
	require.Equal(t, 12, agent.BufferLen())

	policyBefore := snapshot(agent.trainPolicy)
	valueBefore := snapshot(agent.trainValueFn)

	agent.Learn()

	assert.Equal(t, 0, agent.BufferLen())
	assert.NotEqual(t, policyBefore, snapshot(agent.trainPolicy))
	assert.NotEqual(t, valueBefore, snapshot(agent.trainValueFn))
}

func TestLearnHandlesShortFinalMinibatch(t *testing.T) {
	agent := newTestAgent(t)

	// 11 transitions with batch size 8 leaves a final minibatch of 3
	fillEpisode(agent, 11)
	agent.Learn()

	assert.Equal(t, 0, agent.BufferLen())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	agent := newTestAgent(t)
	fillEpisode(agent, 10)
	agent.Learn()

	wantProbs := agent.Probabilities(probeState())
	require.NoError(t, agent.Save(dir))

	config := testConfig()
	config.Seed = 99
	restored, err := New(6, 2, config)
	require.NoError(t, err)

	ok, err := restored.Load(dir)
	require.NoError(t, err)
	require.True(t, ok)

	gotProbs := restored.Probabilities(probeState())
	require.Len(t, gotProbs, len(wantProbs))
	for i := range wantProbs {
		assert.InDelta(t, wantProbs[i], gotProbs[i], 1e-10)
	}
}

func TestLoadMissingBlobsReturnsFalse(t *testing.T) {
	agent := newTestAgent(t)

	ok, err := agent.Load(t.TempDir())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadCorruptBlobsReturnsError(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{actorFile, criticFile} {
		err := os.WriteFile(filepath.Join(dir, name), []byte("not a model"),
			0o644)
		require.NoError(t, err)
	}

	agent := newTestAgent(t)

	ok, err := agent.Load(dir)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestLoadMismatchedArchitectureReturnsError(t *testing.T) {
	dir := t.TempDir()

	config := testConfig()
	other, err := New(4, 2, config)
	require.NoError(t, err)
	require.NoError(t, other.Save(dir))

	agent := newTestAgent(t)

	ok, err := agent.Load(dir)
	assert.Error(t, err)
	assert.False(t, ok)
}
