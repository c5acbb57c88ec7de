package network

import (
	"encoding/gob"
	"fmt"
	"io"
)

// Save writes a gob encoding of a network to w. The encoding captures
// the architecture and the weight values; it is opaque to callers.
func Save(w io.Writer, net NeuralNet) error {
	mlp, ok := net.(*multiHeadMLP)
	if !ok {
		return fmt.Errorf("save: cannot encode network of type %T", net)
	}
	if err := gob.NewEncoder(w).Encode(mlp); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// Load reads a gob-encoded network from r. The returned network lives
// on its own fresh graph.
func Load(r io.Reader) (NeuralNet, error) {
	net := new(multiHeadMLP)
	if err := gob.NewDecoder(r).Decode(net); err != nil {
		return nil, fmt.Errorf("load: %v", err)
	}
	return net, nil
}
