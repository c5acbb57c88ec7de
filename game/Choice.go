// Package game implements the trust game domain: choices, state
// featurization, opponent archetypes, strategy adjustment, and reward
// shaping.
package game

import (
	"fmt"
)

// Action indices of the two choices. The policy's action space is
// exactly {ActionCooperate, ActionBetray}.
const (
	ActionCooperate = 0
	ActionBetray    = 1
)

// NumActions is the size of the game's action space
const NumActions = 2

// Choice is one of the two moves in the trust game
type Choice int

// Available choices
const (
	Cooperate Choice = iota
	Betray
)

// String returns the choice's wire name as used by the game server
func (c Choice) String() string {
	switch c {
	case Cooperate:
		return "cooperate"
	case Betray:
		return "betray"
	default:
		return fmt.Sprintf("Choice(%d)", int(c))
	}
}

// Action returns the choice's action index
func (c Choice) Action() int {
	return int(c)
}

// ChoiceFromAction converts a policy action index to a Choice.
// ChoiceFromAction panics on an index outside the action space.
func ChoiceFromAction(action int) Choice {
	switch action {
	case ActionCooperate:
		return Cooperate
	case ActionBetray:
		return Betray
	default:
		panic(fmt.Sprintf("choicefromaction: illegal action index %d",
			action))
	}
}

// ParseChoice converts a wire name to a Choice
func ParseChoice(s string) (Choice, error) {
	switch s {
	case "cooperate":
		return Cooperate, nil
	case "betray":
		return Betray, nil
	default:
		return 0, fmt.Errorf("parsechoice: unknown choice %q", s)
	}
}
