package qlearning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustpvp/botgo/agent"
)

var _ agent.Agent = (*QLearning)(nil)

func testConfig() Config {
	config := DefaultConfig()
	config.Seed = 13
	return config
}

func newTestAgent(t *testing.T) *QLearning {
	t.Helper()
	q, err := New(stateDim, 2, testConfig())
	require.NoError(t, err)
	return q
}

var probeState = []float64{0.5, 0.75, 0.25, 0.6, 0.0, 0.0}

func TestNewRejectsWrongFeatureCount(t *testing.T) {
	_, err := New(4, 2, testConfig())
	assert.Error(t, err)
}

func TestStateKey(t *testing.T) {
	assert.Equal(t, "2_3_1_1_0_0", stateKey(probeState))

	// Features at 1.0 land in the final bin
	assert.Equal(t, "4_4_4_2_2_1", stateKey([]float64{1, 1, 1, 1, 1, 1}))
	assert.Equal(t, "0_0_0_0_0_0", stateKey([]float64{0, 0, 0, 0, 0, 0}))
}

func TestActContract(t *testing.T) {
	q := newTestAgent(t)

	action, logProb, value := q.Act(probeState)
	assert.Contains(t, []int{0, 1}, action)
	assert.LessOrEqual(t, logProb, 0.0)

	// A fresh table estimates 0 for every state
	assert.Zero(t, value)
}

func TestActPanicsOnShapeMismatch(t *testing.T) {
	q := newTestAgent(t)
	require.Panics(t, func() { q.Act([]float64{1, 2, 3}) })
}

func TestProbabilitiesSumToOne(t *testing.T) {
	q := newTestAgent(t)

	probs := q.Probabilities(probeState)
	require.Len(t, probs, 2)

	sum := 0.0
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestLearnAppliesOneStepUpdate(t *testing.T) {
	q := newTestAgent(t)

	q.Remember(probeState, 1, 0, 0, 1.0, true)
	q.Learn()

	// Terminal update from a zero table: q[a] = α·r
	values := q.qValues(probeState)
	assert.InDelta(t, 0.1, values[1], 1e-12)
	assert.Zero(t, values[0])
	assert.Zero(t, q.BufferLen())
}

func TestLearnBootstrapsFromSuccessor(t *testing.T) {
	q := newTestAgent(t)
	next := []float64{0.85, 0.75, 0.25, 0.6, 0.0, 0.0}

	// The successor must discretize to its own table entry, or seeding
	// it would seed the probe state too
	require.NotEqual(t, stateKey(probeState), stateKey(next))

	// Seed the successor state's value, then learn a non-terminal
	// transition into it
	q.qValues(next)[0] = 2.0

	q.Remember(probeState, 0, 0, 0, 1.0, false)
	q.Remember(next, 0, 0, 0, 0.0, true)
	q.Learn()

	config := testConfig()
	want := config.LearningRate * (1.0 + config.Gamma*2.0)
	assert.InDelta(t, want, q.qValues(probeState)[0], 1e-12)
}

func TestLearnRetainsTrailingNonTerminalTransition(t *testing.T) {
	q := newTestAgent(t)

	q.Remember(probeState, 0, 0, 0, 1.0, false)
	q.Learn()

	// Without a successor the transition waits for the next pass
	assert.Equal(t, 1, q.BufferLen())
	assert.Zero(t, q.qValues(probeState)[0])

	q.Remember(probeState, 1, 0, 0, 0.0, true)
	q.Learn()
	assert.Zero(t, q.BufferLen())
	assert.NotZero(t, q.qValues(probeState)[0])
}

func TestLearnDecaysEpsilon(t *testing.T) {
	q := newTestAgent(t)
	require.Equal(t, 1.0, q.Epsilon())

	q.Remember(probeState, 0, 0, 0, 1.0, true)
	q.Learn()
	assert.InDelta(t, 0.995, q.Epsilon(), 1e-12)
}

func TestEpsilonNeverDropsBelowFloor(t *testing.T) {
	q := newTestAgent(t)

	for i := 0; i < 2000; i++ {
		q.Remember(probeState, 0, 0, 0, 0.0, true)
		q.Learn()
	}
	assert.Equal(t, testConfig().MinEpsilon, q.Epsilon())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	q := newTestAgent(t)
	q.Remember(probeState, 1, 0, 0, 1.0, true)
	q.Learn()
	require.NoError(t, q.Save(dir))

	restored := newTestAgent(t)
	ok, err := restored.Load(dir)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, q.table, restored.table)
	assert.Equal(t, q.TableSize(), restored.TableSize())
}

func TestLoadMissingBlobReturnsFalse(t *testing.T) {
	q := newTestAgent(t)

	ok, err := q.Load(t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadCorruptBlobReturnsError(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, tableFile),
		[]byte("not a gob blob"), 0o644)
	require.NoError(t, err)

	q := newTestAgent(t)
	ok, err := q.Load(dir)
	assert.Error(t, err)
	assert.False(t, ok)
}
