package ppo

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"

	"github.com/trustpvp/botgo/network"
	"github.com/trustpvp/botgo/utils/floatutils"
)

// categoricalPolicy samples actions from the categorical distribution
// induced by a policy network's unnormalized scores. It owns a
// batch-1 clone of the training network together with its own VM, so
// sampling never touches the training graph.
type categoricalPolicy struct {
	net        network.NeuralNet
	vm         G.VM
	numActions int
	source     rand.Source
}

// newCategoricalPolicy returns a sampler for the given training
// network. The sampler's weights start equal to the training
// network's weights.
func newCategoricalPolicy(train network.NeuralNet,
	seed uint64) (*categoricalPolicy, error) {
	net, err := train.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("newcategoricalpolicy: could not clone "+
			"network: %v", err)
	}

	return &categoricalPolicy{
		net:        net,
		vm:         G.NewTapeMachine(net.Graph()),
		numActions: net.Outputs(),
		source:     rand.NewSource(seed),
	}, nil
}

// probabilities runs the forward pass for a single state and returns
// the action scores and the normalized action probabilities.
func (c *categoricalPolicy) probabilities(state []float64) ([]float64,
	[]float64, error) {
	if err := c.net.SetInput(state); err != nil {
		return nil, nil, fmt.Errorf("probabilities: %v", err)
	}
	if err := c.vm.RunAll(); err != nil {
		return nil, nil, fmt.Errorf("probabilities: could not run forward "+
			"pass: %v", err)
	}
	logits := append([]float64{}, c.net.Output().Data().([]float64)...)
	c.vm.Reset()

	if len(logits) != c.numActions {
		return nil, nil, fmt.Errorf("probabilities: expected %v action "+
			"scores, got %v", c.numActions, len(logits))
	}

	return logits, floatutils.Softmax(logits), nil
}

// sample draws a single action from the categorical distribution for
// the given state, returning the action index and the natural-log
// probability of the action under the current distribution. Sampling
// is stochastic to preserve exploration.
func (c *categoricalPolicy) sample(state []float64) (int, float64, error) {
	logits, probs, err := c.probabilities(state)
	if err != nil {
		return 0, 0, fmt.Errorf("sample: %v", err)
	}

	dist := distuv.NewCategorical(probs, c.source)
	action := int(dist.Rand())

	logProb := logits[action] - floatutils.LogSumExp(logits...)
	return action, logProb, nil
}

// sync copies the training network's weights into the sampler
func (c *categoricalPolicy) sync(train network.NeuralNet) error {
	return c.net.Set(train)
}
