// Package agent describes the interface shared by the learning agents
// that play the trust game.
package agent

// Agent is a learning agent for a repeated two-choice game. States
// are fixed-dimension feature vectors owned by the caller; actions
// are indices into the game's choice set.
type Agent interface {
	// Act samples an action for the given state, returning the action
	// index, the natural-log probability of the action under the
	// current policy, and the agent's value estimate for the state.
	Act(state []float64) (action int, logProb, value float64)

	// Remember records a single transition for a later learning pass
	Remember(state []float64, action int, logProb, value, reward float64,
		done bool)

	// Learn updates the agent from its recorded transitions and
	// discards them
	Learn()

	// Save persists the agent's parameters under dir
	Save(dir string) error

	// Load restores the agent's parameters from dir. It returns false
	// with a nil error when no saved parameters exist, in which case
	// the agent keeps its freshly initialized parameters.
	Load(dir string) (bool, error)
}
