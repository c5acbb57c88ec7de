package ppo

import (
	"fmt"
)

// Transition is a single decision step awaiting a learning pass. A
// Transition is created once, appended to exactly one Buffer, and
// never mutated afterwards.
type Transition struct {
	State   []float64
	Action  int
	LogProb float64 // Log probability of Action when it was sampled
	Value   float64 // Critic's value estimate when Action was sampled
	Reward  float64
	Done    bool // Marks the end of a trajectory segment
}

// Buffer is an ordered, append-only store of transitions. Insertion
// order is temporal order within an episode; advantage estimation is
// a backward recurrence over this order. The buffer may hold several
// trajectories concatenated, separated by transitions with Done set.
//
// A Buffer is single-writer, single-reader within one learning cycle
// and performs no synchronization of its own.
type Buffer struct {
	features    int
	transitions []Transition
}

// NewBuffer returns a new empty Buffer accepting states with the
// given number of features.
func NewBuffer(features int) *Buffer {
	return &Buffer{features: features}
}

// Append adds a transition to the end of the buffer. Append panics
// when the transition's state dimension violates the buffer's fixed
// contract.
func (b *Buffer) Append(t Transition) {
	if len(t.State) != b.features {
		panic(fmt.Sprintf("append: illegal state length \n\twant(%v)"+
			"\n\thave(%v)", b.features, len(t.State)))
	}
	b.transitions = append(b.transitions, t)
}

// Len returns the number of buffered transitions
func (b *Buffer) Len() int {
	return len(b.transitions)
}

// Drain returns all buffered transitions in insertion order and
// empties the buffer.
func (b *Buffer) Drain() []Transition {
	transitions := b.transitions
	b.transitions = nil
	return transitions
}
