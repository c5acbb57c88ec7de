// Package initwfn wraps Gorgonia weight initialization functions
// behind typed configurations so that an agent's weight
// initialization scheme can be described in a configuration file.
package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes the types of weight initializers that are available
type Type string

// Available InitWFn types
const (
	GlorotU Type = "GlorotU"
	GlorotN Type = "GlorotN"
	Zeroes  Type = "Zeroes"
)

// InitWFn wraps a Gorgonia InitWFn together with the typed
// configuration that created it.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn described by the Config
func newInitWFn(c Config) *InitWFn {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (w *InitWFn) InitWFn() G.InitWFn {
	return w.initWFn
}

// String implements the fmt.Stringer interface
func (w *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", w.Type, w.Config)
}

// Config describes a Gorgonia InitWFn and can create the InitWFn it
// describes.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}
