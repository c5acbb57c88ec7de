package ppo

import (
	"fmt"

	"github.com/trustpvp/botgo/initwfn"
	"github.com/trustpvp/botgo/network"
)

// Config describes the hyperparameters of a PPO agent
type Config struct {
	// Discounting and advantage estimation
	Gamma  float64 // Discount factor
	Lambda float64 // GAE mixing parameter

	// Policy update
	Clip      float64 // Policy ratio clipping threshold ε
	StepSize  float64 // Adam step size for both networks
	BatchSize int     // Minibatch size for each gradient step
	Epochs    int     // Passes over the buffer per learning call

	// Network architecture, shared by the actor and the critic.
	// The networks never share weights.
	HiddenSizes []int

	Seed uint64
}

// DefaultConfig returns the default PPO hyperparameters
func DefaultConfig() Config {
	return Config{
		Gamma:       0.99,
		Lambda:      0.95,
		Clip:        0.2,
		StepSize:    1e-4,
		BatchSize:   128,
		Epochs:      10,
		HiddenSizes: []int{64, 64},
	}
}

// Validate returns an error describing the first invalid
// hyperparameter, if any.
func (c Config) Validate() error {
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1], got %v", c.Gamma)
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("validate: lambda must be in [0, 1], got %v",
			c.Lambda)
	}
	if c.Clip <= 0 {
		return fmt.Errorf("validate: clip must be positive, got %v", c.Clip)
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive, got %v",
			c.StepSize)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive, got %v",
			c.BatchSize)
	}
	if c.Epochs < 1 {
		return fmt.Errorf("validate: epochs must be positive, got %v",
			c.Epochs)
	}
	if len(c.HiddenSizes) == 0 {
		return fmt.Errorf("validate: at least one hidden layer is required")
	}
	return nil
}

// hidden returns the network architecture arguments implied by the
// Config: rectified-linear hidden layers with bias units.
func (c Config) hidden() ([]int, []bool, []*network.Activation) {
	biases := make([]bool, len(c.HiddenSizes))
	activations := make([]*network.Activation, len(c.HiddenSizes))
	for i := range c.HiddenSizes {
		biases[i] = true
		activations[i] = network.ReLU()
	}
	return c.HiddenSizes, biases, activations
}

// init returns the weight initializer used for both networks
func (c Config) init() *initwfn.InitWFn {
	return initwfn.NewGlorotU(1.0)
}
