package qlearning

import (
	"fmt"
)

// Config describes the hyperparameters of a tabular Q-learning agent
type Config struct {
	LearningRate float64 // Step size α for Q-value updates
	Gamma        float64 // Discount factor
	Epsilon      float64 // Initial exploration rate
	EpsilonDecay float64 // Multiplicative exploration decay per update
	MinEpsilon   float64 // Exploration rate floor

	Seed uint64
}

// DefaultConfig returns the default Q-learning hyperparameters
func DefaultConfig() Config {
	return Config{
		LearningRate: 0.1,
		Gamma:        0.95,
		Epsilon:      1.0,
		EpsilonDecay: 0.995,
		MinEpsilon:   0.01,
	}
}

// Validate returns an error describing the first invalid
// hyperparameter, if any.
func (c Config) Validate() error {
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("validate: learning rate must be in (0, 1], got %v",
			c.LearningRate)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1], got %v", c.Gamma)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("validate: epsilon must be in [0, 1], got %v",
			c.Epsilon)
	}
	if c.EpsilonDecay <= 0 || c.EpsilonDecay > 1 {
		return fmt.Errorf("validate: epsilon decay must be in (0, 1], got %v",
			c.EpsilonDecay)
	}
	if c.MinEpsilon < 0 || c.MinEpsilon > c.Epsilon {
		return fmt.Errorf("validate: min epsilon must be in [0, epsilon], "+
			"got %v", c.MinEpsilon)
	}
	return nil
}
