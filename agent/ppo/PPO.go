// Package ppo implements Proximal Policy Optimization for discrete
// action spaces: an actor-critic pair of MLPs, a rollout buffer,
// GAE(λ) advantage estimation, and a clipped-surrogate update loop
// over minibatches of shared experience.
//
// Adapted from the clipped-objective PPO of
// https://arxiv.org/abs/1707.06347
package ppo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/trustpvp/botgo/network"
	"github.com/trustpvp/botgo/solver"
	"github.com/trustpvp/botgo/utils/op"
)

// Parameter blob file names, one per network
const (
	actorFile  = "ppo_actor.gob"
	criticFile = "ppo_critic.gob"
)

// PPO is a Proximal Policy Optimization agent. The agent owns two
// independent parameter sets: a policy network mapping states to a
// categorical action distribution, and a value network mapping states
// to a scalar state-value estimate. Each network has its own Adam
// solver; they never share weights.
//
// Action selection and learning are ordinary blocking calls. The
// agent assumes a single caller: it performs no synchronization of
// its own.
type PPO struct {
	config     Config
	features   int
	numActions int

	buffer *Buffer

	// Samplers with batch-1 clones of the training networks
	policy   *categoricalPolicy
	valueFn  network.NeuralNet
	valueVM  G.VM

	// Training policy network and its clipped-surrogate loss graph.
	// The graph is sized to the configured minibatch; shorter
	// minibatches occupy a prefix of the rows and the row weights
	// zero out the rest.
	trainPolicy   network.NeuralNet
	trainPolicyVM G.VM
	policySolver  *solver.Solver
	actionIndices *G.Node // One-hot selection of the stored actions
	oldLogProbs   *G.Node
	advantages    *G.Node
	policyRowWts  *G.Node

	// Training value network and its squared-error loss graph
	trainValueFn   network.NeuralNet
	trainValueFnVM G.VM
	valueSolver    *solver.Solver
	valueTargets   *G.Node
	valueRowWts    *G.Node
}

// New returns a new PPO agent for states with the given number of
// features and the given number of discrete actions.
func New(features, numActions int, config Config) (*PPO, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if features < 1 {
		return nil, fmt.Errorf("new: features must be positive, got %v",
			features)
	}
	if numActions < 2 {
		return nil, fmt.Errorf("new: at least two actions are required, "+
			"got %v", numActions)
	}

	batch := config.BatchSize
	hiddenSizes, biases, activations := config.hidden()
	init := config.init().InitWFn()

	// Training policy network and clipped surrogate loss
	policyGraph := G.NewGraph()
	trainPolicy, err := network.NewMultiHeadMLP(features, batch, numActions,
		policyGraph, hiddenSizes, biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy network: %v",
			err)
	}

	logits := trainPolicy.Prediction()

	actionIndices := G.NewMatrix(
		policyGraph,
		tensor.Float64,
		G.WithShape(batch, numActions),
		G.WithName("actionIndices"),
		G.WithInit(G.Zeroes()),
	)
	chosenLogits := G.Must(G.Sum(
		G.Must(G.HadamardProd(actionIndices, logits)), 1))
	newLogProbs := G.Must(G.Sub(chosenLogits, op.LogSumExp(logits, 1)))

	oldLogProbs := G.NewVector(
		policyGraph,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("oldLogProbs"),
		G.WithInit(G.Zeroes()),
	)
	ratio := G.Must(G.Exp(G.Must(G.Sub(newLogProbs, oldLogProbs))))

	advantages := G.NewVector(
		policyGraph,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("advantages"),
		G.WithInit(G.Zeroes()),
	)
	policyRowWts := G.NewVector(
		policyGraph,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("policyRowWeights"),
		G.WithInit(G.Zeroes()),
	)

	surrogate := G.Must(G.HadamardProd(ratio, advantages))
	clippedRatio, err := op.Clip(ratio, 1-config.Clip, 1+config.Clip)
	if err != nil {
		return nil, fmt.Errorf("new: could not clip policy ratio: %v", err)
	}
	clippedSurrogate := G.Must(G.HadamardProd(clippedRatio, advantages))

	pessimistic, err := op.Min(surrogate, clippedSurrogate)
	if err != nil {
		return nil, fmt.Errorf("new: could not form surrogate minimum: %v",
			err)
	}

	// Row weights hold 1/m for the m live rows of the minibatch, so
	// the weighted sum is the minibatch mean
	policyLoss := G.Must(G.HadamardProd(pessimistic, policyRowWts))
	policyLoss = G.Must(G.Sum(policyLoss))
	policyLoss = G.Must(G.Neg(policyLoss))

	if _, err := G.Grad(policyLoss, trainPolicy.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute policy gradient: %v",
			err)
	}
	trainPolicyVM := G.NewTapeMachine(policyGraph,
		G.BindDualValues(trainPolicy.Learnables()...))

	policySolver, err := solver.NewDefaultAdam(config.StepSize, batch)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy solver: %v", err)
	}

	// Training value network and squared-error loss against the
	// GAE-derived returns, weighted by 0.5 to match the combined
	// actor-critic objective
	valueGraph := G.NewGraph()
	trainValueFn, err := network.NewSingleHeadMLP(features, batch, valueGraph,
		hiddenSizes, biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("new: could not create value network: %v", err)
	}

	valueTargets := G.NewMatrix(
		valueGraph,
		tensor.Float64,
		G.WithShape(trainValueFn.Prediction().Shape()...),
		G.WithName("valueTargets"),
		G.WithInit(G.Zeroes()),
	)
	valueRowWts := G.NewMatrix(
		valueGraph,
		tensor.Float64,
		G.WithShape(trainValueFn.Prediction().Shape()...),
		G.WithName("valueRowWeights"),
		G.WithInit(G.Zeroes()),
	)

	valueLoss := G.Must(G.Sub(trainValueFn.Prediction(), valueTargets))
	valueLoss = G.Must(G.Square(valueLoss))
	valueLoss = G.Must(G.HadamardProd(valueLoss, valueRowWts))
	valueLoss = G.Must(G.Sum(valueLoss))
	valueLoss = G.Must(G.Mul(valueLoss, G.NewConstant(0.5)))

	if _, err := G.Grad(valueLoss, trainValueFn.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute value gradient: %v",
			err)
	}
	trainValueFnVM := G.NewTapeMachine(valueGraph,
		G.BindDualValues(trainValueFn.Learnables()...))

	valueSolver, err := solver.NewDefaultAdam(config.StepSize, batch)
	if err != nil {
		return nil, fmt.Errorf("new: could not create value solver: %v", err)
	}

	// Batch-1 samplers for action selection
	policy, err := newCategoricalPolicy(trainPolicy, config.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	valueFn, err := trainValueFn.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("new: could not clone value network: %v", err)
	}

	return &PPO{
		config:     config,
		features:   features,
		numActions: numActions,
		buffer:     NewBuffer(features),

		policy:  policy,
		valueFn: valueFn,
		valueVM: G.NewTapeMachine(valueFn.Graph()),

		trainPolicy:   trainPolicy,
		trainPolicyVM: trainPolicyVM,
		policySolver:  policySolver,
		actionIndices: actionIndices,
		oldLogProbs:   oldLogProbs,
		advantages:    advantages,
		policyRowWts:  policyRowWts,

		trainValueFn:   trainValueFn,
		trainValueFnVM: trainValueFnVM,
		valueSolver:    valueSolver,
		valueTargets:   valueTargets,
		valueRowWts:    valueRowWts,
	}, nil
}

// Act samples an action for the given state, returning the action
// index, its log probability under the current policy, and the value
// estimate for the state. Act panics when the state dimension
// violates the agent's fixed contract.
func (p *PPO) Act(state []float64) (int, float64, float64) {
	if len(state) != p.features {
		panic(fmt.Sprintf("act: illegal state length \n\twant(%v)"+
			"\n\thave(%v)", p.features, len(state)))
	}

	action, logProb, err := p.policy.sample(state)
	if err != nil {
		panic(fmt.Sprintf("act: %v", err))
	}

	return action, logProb, p.estimate(state)
}

// Probabilities returns the current action probabilities for the
// given state. The probabilities are non-negative and sum to 1.
func (p *PPO) Probabilities(state []float64) []float64 {
	if len(state) != p.features {
		panic(fmt.Sprintf("probabilities: illegal state length "+
			"\n\twant(%v)\n\thave(%v)", p.features, len(state)))
	}

	_, probs, err := p.policy.probabilities(state)
	if err != nil {
		panic(fmt.Sprintf("probabilities: %v", err))
	}
	return probs
}

// estimate runs the value network's forward pass for a single state
func (p *PPO) estimate(state []float64) float64 {
	if err := p.valueFn.SetInput(state); err != nil {
		panic(fmt.Sprintf("estimate: %v", err))
	}
	if err := p.valueVM.RunAll(); err != nil {
		panic(fmt.Sprintf("estimate: could not run forward pass: %v", err))
	}
	values := p.valueFn.Output().Data().([]float64)
	if len(values) != 1 {
		panic("estimate: multiple values predicted for a single state")
	}
	value := values[0]
	p.valueVM.Reset()

	return value
}

// Remember records a single transition for the next learning pass.
// Transitions must be recorded in temporal order.
func (p *PPO) Remember(state []float64, action int, logProb, value,
	reward float64, done bool) {
	p.buffer.Append(Transition{
		State:   state,
		Action:  action,
		LogProb: logProb,
		Value:   value,
		Reward:  reward,
		Done:    done,
	})
}

// Learn updates both networks from the buffered transitions and
// unconditionally drains the buffer. Advantages and returns are
// computed once per call; every epoch iterates over the same values
// in contiguous minibatches. Learning from an empty buffer is a
// no-op.
func (p *PPO) Learn() {
	transitions := p.buffer.Drain()
	if len(transitions) == 0 {
		return
	}

	rewards := make([]float64, len(transitions))
	values := make([]float64, len(transitions))
	dones := make([]bool, len(transitions))
	for i, t := range transitions {
		rewards[i] = t.Reward
		values[i] = t.Value
		dones[i] = t.Done
	}

	advantages := Advantages(rewards, values, dones, p.config.Gamma,
		p.config.Lambda)
	returns := Returns(advantages, values)

	for epoch := 0; epoch < p.config.Epochs; epoch++ {
		for start := 0; start < len(transitions); start += p.config.BatchSize {
			end := min(start+p.config.BatchSize, len(transitions))
			p.step(transitions[start:end], advantages[start:end],
				returns[start:end])
		}
	}

	// The samplers act with the updated parameters from now on
	if err := p.policy.sync(p.trainPolicy); err != nil {
		panic(fmt.Sprintf("learn: could not sync policy weights: %v", err))
	}
	if err := p.valueFn.Set(p.trainValueFn); err != nil {
		panic(fmt.Sprintf("learn: could not sync value weights: %v", err))
	}
}

// step performs one gradient step on each network for a contiguous
// minibatch. The minibatch may be shorter than the configured batch
// size; trailing rows carry zero weight and contribute no gradient.
func (p *PPO) step(batch []Transition, advantages, returns []float64) {
	size := p.config.BatchSize
	m := len(batch)

	states := make([]float64, size*p.features)
	indices := make([]float64, size*p.numActions)
	oldLogProbs := make([]float64, size)
	adv := make([]float64, size)
	rowWts := make([]float64, size)
	targets := make([]float64, size)
	for i, t := range batch {
		copy(states[i*p.features:(i+1)*p.features], t.State)
		indices[i*p.numActions+t.Action] = 1.0
		oldLogProbs[i] = t.LogProb
		adv[i] = advantages[i]
		rowWts[i] = 1.0 / float64(m)
		targets[i] = returns[i]
	}

	// Policy gradient step
	if err := p.trainPolicy.SetInput(states); err != nil {
		panic(fmt.Sprintf("step: %v", err))
	}
	p.let(p.actionIndices, []int{size, p.numActions}, indices)
	p.let(p.oldLogProbs, []int{size}, oldLogProbs)
	p.let(p.advantages, []int{size}, adv)
	p.let(p.policyRowWts, []int{size}, rowWts)

	if err := p.trainPolicyVM.RunAll(); err != nil {
		panic(fmt.Sprintf("step: could not run policy update: %v", err))
	}
	if err := p.policySolver.Step(p.trainPolicy.Model()); err != nil {
		panic(fmt.Sprintf("step: could not step policy solver: %v", err))
	}
	p.trainPolicyVM.Reset()

	// Value gradient step against the GAE-derived returns, with the
	// value estimates freshly recomputed under the current weights
	if err := p.trainValueFn.SetInput(states); err != nil {
		panic(fmt.Sprintf("step: %v", err))
	}
	p.let(p.valueTargets, []int{size, 1}, targets)
	p.let(p.valueRowWts, []int{size, 1}, rowWts)

	if err := p.trainValueFnVM.RunAll(); err != nil {
		panic(fmt.Sprintf("step: could not run value update: %v", err))
	}
	if err := p.valueSolver.Step(p.trainValueFn.Model()); err != nil {
		panic(fmt.Sprintf("step: could not step value solver: %v", err))
	}
	p.trainValueFnVM.Reset()
}

// let binds a backing slice to an input node
func (p *PPO) let(node *G.Node, shape []int, backing []float64) {
	err := G.Let(node, tensor.NewDense(
		tensor.Float64,
		shape,
		tensor.WithBacking(backing),
	))
	if err != nil {
		panic(fmt.Sprintf("let: could not bind %v: %v", node.Name(), err))
	}
}

// BufferLen returns the number of transitions awaiting a learning
// pass.
func (p *PPO) BufferLen() int {
	return p.buffer.Len()
}

// Save writes both networks' parameters as opaque blobs under dir,
// creating dir if needed.
func (p *PPO) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save: could not create model directory: %v", err)
	}

	if err := saveNet(filepath.Join(dir, actorFile), p.trainPolicy); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	if err := saveNet(filepath.Join(dir, criticFile), p.trainValueFn); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// Load restores both networks' parameters from dir. It returns
// (false, nil) when either blob is absent, leaving the freshly
// initialized parameters in place, and (false, error) when a blob is
// present but corrupt or incompatible.
func (p *PPO) Load(dir string) (bool, error) {
	actor, err := loadNet(filepath.Join(dir, actorFile))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("load: %v", err)
	}

	critic, err := loadNet(filepath.Join(dir, criticFile))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("load: %v", err)
	}

	if actor.Features() != p.features || actor.Outputs() != p.numActions {
		return false, fmt.Errorf("load: saved actor is %vx%v, want %vx%v",
			actor.Features(), actor.Outputs(), p.features, p.numActions)
	}
	if critic.Features() != p.features || critic.Outputs() != 1 {
		return false, fmt.Errorf("load: saved critic is %vx%v, want %vx1",
			critic.Features(), critic.Outputs(), p.features)
	}

	if err := p.trainPolicy.Set(actor); err != nil {
		return false, fmt.Errorf("load: could not restore actor: %v", err)
	}
	if err := p.trainValueFn.Set(critic); err != nil {
		return false, fmt.Errorf("load: could not restore critic: %v", err)
	}

	if err := p.policy.sync(p.trainPolicy); err != nil {
		return false, fmt.Errorf("load: could not sync policy weights: %v",
			err)
	}
	if err := p.valueFn.Set(p.trainValueFn); err != nil {
		return false, fmt.Errorf("load: could not sync value weights: %v",
			err)
	}
	return true, nil
}

// saveNet writes a single network to path
func saveNet(path string, net network.NeuralNet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %v: %v", path, err)
	}
	defer f.Close()

	if err := network.Save(f, net); err != nil {
		return fmt.Errorf("could not encode %v: %v", path, err)
	}
	return nil
}

// loadNet reads a single network from path
func loadNet(path string) (network.NeuralNet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	net, err := network.Load(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %v", path, err)
	}
	return net, nil
}
