// Package network implements feedforward neural network function
// approximators on top of Gorgonia expression graphs.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a feedforward function approximator. A NeuralNet is
// bound to a single expression graph and a fixed input batch size.
// Networks with the same architecture but a different batch size are
// created with CloneWithBatch, and their weights are kept in sync
// with Set.
type NeuralNet interface {
	// Graph returns the expression graph the network is built on
	Graph() *G.ExprGraph

	// CloneWithBatch clones the network onto a new graph with a new
	// input batch size. Weights are copied, not shared.
	CloneWithBatch(batch int) (NeuralNet, error)

	// BatchSize returns the number of rows in the network's input
	BatchSize() int

	// Features returns the number of features in a single input row
	Features() int

	// Outputs returns the number of values predicted per input row
	Outputs() int

	// SetInput sets the value of the input node before a forward pass
	SetInput([]float64) error

	// Set copies the weights of another network of the same
	// architecture into the receiver
	Set(NeuralNet) error

	// Learnables returns the nodes holding the network weights
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients
	Model() []G.ValueGrad

	// Output returns the value of the prediction node after the last
	// forward pass
	Output() G.Value

	// Prediction returns the node storing the network's output
	Prediction() *G.Node
}
