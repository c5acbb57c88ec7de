// Package qlearning implements a tabular Q-learning baseline for the
// trust game. The continuous state vector is discretized into a small
// key space and a Q-table maps each key to per-action value estimates.
// Action selection is ε-greedy with multiplicative ε decay.
package qlearning

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/exp/rand"

	"github.com/trustpvp/botgo/utils/floatutils"
)

// Parameter blob file name
const tableFile = "q_table.gob"

// stateDim is the state layout the discretizer understands:
// round progress, cooperation rate, betrayal rate, the two streak
// features, and the last-round flag.
const stateDim = 6

// Discretization bins per feature group
const (
	roundBins  = 5
	rateBins   = 5
	streakBins = 3
)

// transition is one recorded step awaiting a learning pass
type transition struct {
	state  []float64
	action int
	reward float64
	done   bool
}

// QLearning is a tabular Q-learning agent. Like its neural
// counterpart it assumes a single caller and performs no
// synchronization of its own.
type QLearning struct {
	config     Config
	numActions int
	epsilon    float64

	table       map[string][]float64
	transitions []transition
	rng         *rand.Rand
}

// New returns a new tabular agent for the trust game's state layout
// and the given number of discrete actions.
func New(features, numActions int, config Config) (*QLearning, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if features != stateDim {
		return nil, fmt.Errorf("new: the discretizer requires %v-feature "+
			"states, got %v", stateDim, features)
	}
	if numActions < 2 {
		return nil, fmt.Errorf("new: at least two actions are required, "+
			"got %v", numActions)
	}

	return &QLearning{
		config:     config,
		numActions: numActions,
		epsilon:    config.Epsilon,
		table:      make(map[string][]float64),
		rng:        rand.New(rand.NewSource(config.Seed)),
	}, nil
}

// stateKey discretizes a state vector into its Q-table key
func stateKey(state []float64) string {
	bin := func(value float64, bins int) int {
		return min(int(value*float64(bins)), bins-1)
	}

	lastRound := 0
	if state[5] > 0.5 {
		lastRound = 1
	}

	return fmt.Sprintf("%d_%d_%d_%d_%d_%d",
		bin(state[0], roundBins),
		bin(state[1], rateBins),
		bin(state[2], rateBins),
		bin(state[3], streakBins),
		bin(state[4], streakBins),
		lastRound,
	)
}

// qValues returns the mutable per-action estimates for a state,
// initializing unseen states to zero.
func (q *QLearning) qValues(state []float64) []float64 {
	key := stateKey(state)
	values, ok := q.table[key]
	if !ok {
		values = make([]float64, q.numActions)
		q.table[key] = values
	}
	return values
}

// Act selects an action ε-greedily, returning the action index, the
// natural-log probability of the action under the softmax of the
// state's Q-values, and the chosen action's Q-value as the value
// estimate. Act panics when the state dimension violates the agent's
// fixed contract.
func (q *QLearning) Act(state []float64) (int, float64, float64) {
	if len(state) != stateDim {
		panic(fmt.Sprintf("act: illegal state length \n\twant(%v)"+
			"\n\thave(%v)", stateDim, len(state)))
	}

	values := q.qValues(state)

	var action int
	if q.rng.Float64() < q.epsilon {
		action = q.rng.Intn(q.numActions)
	} else {
		// Greedy with random tie-breaking
		greedy := floatutils.ArgMax(values...)
		action = greedy[q.rng.Intn(len(greedy))]
	}

	probs := floatutils.Softmax(values)
	return action, math.Log(probs[action]), values[action]
}

// Probabilities returns the softmax of the state's Q-values. The
// probabilities are non-negative and sum to 1.
func (q *QLearning) Probabilities(state []float64) []float64 {
	if len(state) != stateDim {
		panic(fmt.Sprintf("probabilities: illegal state length "+
			"\n\twant(%v)\n\thave(%v)", stateDim, len(state)))
	}
	return floatutils.Softmax(q.qValues(state))
}

// Remember records a single transition for the next learning pass.
// Transitions must be recorded in temporal order. The log probability
// and value arguments exist to satisfy the shared agent contract; the
// tabular update does not consume them.
func (q *QLearning) Remember(state []float64, action int, logProb, value,
	reward float64, done bool) {
	if len(state) != stateDim {
		panic(fmt.Sprintf("remember: illegal state length \n\twant(%v)"+
			"\n\thave(%v)", stateDim, len(state)))
	}

	stored := make([]float64, stateDim)
	copy(stored, state)
	q.transitions = append(q.transitions, transition{
		state:  stored,
		action: action,
		reward: reward,
		done:   done,
	})
}

// Learn replays the recorded transitions through the one-step
// Q-learning update. Each non-terminal transition bootstraps from the
// following transition's state; a trailing non-terminal transition has
// no successor yet and is retained for the next call. ε decays once
// per applied update. Learning with no applicable transitions is a
// no-op.
func (q *QLearning) Learn() {
	transitions := q.transitions
	q.transitions = nil

	for i, t := range transitions {
		maxNext := 0.0
		if !t.done {
			if i+1 >= len(transitions) {
				// No successor recorded yet
				q.transitions = append(q.transitions, t)
				break
			}
			maxNext = floatutils.Max(q.qValues(transitions[i+1].state)...)
		}

		values := q.qValues(t.state)
		target := t.reward + q.config.Gamma*maxNext
		values[t.action] += q.config.LearningRate * (target - values[t.action])

		q.epsilon = math.Max(q.config.MinEpsilon,
			q.epsilon*q.config.EpsilonDecay)
	}
}

// BufferLen returns the number of transitions awaiting a learning
// pass.
func (q *QLearning) BufferLen() int {
	return len(q.transitions)
}

// TableSize returns the number of distinct discretized states seen so
// far.
func (q *QLearning) TableSize() int {
	return len(q.table)
}

// Epsilon returns the current exploration rate
func (q *QLearning) Epsilon() float64 {
	return q.epsilon
}

// Save writes the Q-table as an opaque blob under dir, creating dir if
// needed.
func (q *QLearning) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save: could not create model directory: %v", err)
	}

	path := filepath.Join(dir, tableFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: could not create %v: %v", path, err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(q.table); err != nil {
		return fmt.Errorf("save: could not encode %v: %v", path, err)
	}
	return nil
}

// Load restores the Q-table from dir. It returns (false, nil) when no
// blob exists, leaving the fresh table in place, and (false, error)
// when a blob is present but corrupt or incompatible.
func (q *QLearning) Load(dir string) (bool, error) {
	path := filepath.Join(dir, tableFile)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("load: %v", err)
	}
	defer f.Close()

	table := make(map[string][]float64)
	if err := gob.NewDecoder(f).Decode(&table); err != nil {
		return false, fmt.Errorf("load: could not decode %v: %v", path, err)
	}
	for key, values := range table {
		if len(values) != q.numActions {
			return false, fmt.Errorf("load: state %v has %v actions, want %v",
				key, len(values), q.numActions)
		}
	}

	q.table = table
	return true, nil
}
