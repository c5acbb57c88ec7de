package ppo

import (
	"fmt"
)

// Advantages computes GAE(λ) advantage estimates for aligned
// sequences of rewards, value estimates, and terminal flags, using
// the O(T) backward recurrence
//
//	δ_t = rewards[t] + γ·values[t+1]·(1-done_t) - values[t]
//	a_t = δ_t + γλ·(1-done_t)·a_{t+1}
//
// A set done flag zeroes both the bootstrap term and the recurrence
// carry, so no value estimate leaks across trajectory segments.
//
// The final transition has no successor: its one-step residual is
// never formed and its advantage stays zero. Downstream returns are
// therefore values[T-1] exactly at the final index.
func Advantages(rewards, values []float64, dones []bool,
	gamma, lambda float64) []float64 {
	if len(values) != len(rewards) || len(dones) != len(rewards) {
		panic(fmt.Sprintf("advantages: misaligned sequences "+
			"\n\trewards(%v)\n\tvalues(%v)\n\tdones(%v)", len(rewards),
			len(values), len(dones)))
	}

	advantages := make([]float64, len(rewards))
	for t := len(rewards) - 2; t >= 0; t-- {
		notDone := 1.0
		if dones[t] {
			notDone = 0.0
		}
		delta := rewards[t] + gamma*values[t+1]*notDone - values[t]
		advantages[t] = delta + gamma*lambda*notDone*advantages[t+1]
	}
	return advantages
}

// Returns computes the critic's regression targets from advantage
// estimates: returns[t] = advantages[t] + values[t].
func Returns(advantages, values []float64) []float64 {
	if len(advantages) != len(values) {
		panic(fmt.Sprintf("returns: misaligned sequences "+
			"\n\tadvantages(%v)\n\tvalues(%v)", len(advantages), len(values)))
	}

	returns := make([]float64, len(advantages))
	for t := range advantages {
		returns[t] = advantages[t] + values[t]
	}
	return returns
}
