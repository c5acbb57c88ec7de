package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

type activationType string

const (
	relu     activationType = "relu"
	tanh     activationType = "tanh"
	identity activationType = "identity"
)

// Activation is an activation function for a network layer. The zero
// value is not usable; construct Activations with ReLU, TanH, or
// Identity.
type Activation struct {
	activationType
	f func(x *G.Node) (*G.Node, error)
}

// fwd applies the activation to a node
func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

// String implements the fmt.Stringer interface
func (a *Activation) String() string {
	return string(a.activationType)
}

// IsIdentity returns whether the Activation is the identity function
func (a *Activation) IsIdentity() bool {
	return a.activationType == identity
}

// GobEncode implements the gob.GobEncoder interface
func (a *Activation) GobEncode() ([]byte, error) {
	return []byte(a.activationType), nil
}

// GobDecode implements the gob.GobDecoder interface
func (a *Activation) GobDecode(encoded []byte) error {
	switch activationType(encoded) {
	case relu:
		*a = *ReLU()
	case tanh:
		*a = *TanH()
	case identity:
		*a = *Identity()
	default:
		return fmt.Errorf("gobdecode: illegal activation type %q", encoded)
	}
	return nil
}

// ReLU returns a rectified linear *Activation
func ReLU() *Activation {
	return &Activation{
		activationType: relu,
		f:              G.Rectify,
	}
}

// TanH returns a hyperbolic tangent *Activation
func TanH() *Activation {
	return &Activation{
		activationType: tanh,
		f:              G.Tanh,
	}
}

// Identity returns an identity *Activation
func Identity() *Activation {
	return &Activation{
		activationType: identity,
		f: func(x *G.Node) (*G.Node, error) {
			return x, nil
		},
	}
}
