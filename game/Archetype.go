package game

import (
	"fmt"
)

// Archetype is a closed classification of opponent behavior, used to
// adjust the policy's raw action and to shape rewards.
type Archetype int

// Opponent archetypes
const (
	Unknown Archetype = iota
	Cooperative
	Hostile
	Forgiving
	Vengeful
	TitForTat
	Random
	Mixed
)

// String implements the fmt.Stringer interface
func (a Archetype) String() string {
	switch a {
	case Unknown:
		return "unknown"
	case Cooperative:
		return "cooperative"
	case Hostile:
		return "hostile"
	case Forgiving:
		return "forgiving"
	case Vengeful:
		return "vengeful"
	case TitForTat:
		return "tit_for_tat"
	case Random:
		return "random"
	case Mixed:
		return "mixed"
	default:
		return fmt.Sprintf("Archetype(%d)", int(a))
	}
}

// minObservedMoves is the number of observed opponent moves below
// which no classification is attempted
const minObservedMoves = 3

// Classify determines the opponent's archetype from their observed
// choices and our own, aligned so that ours[i] was played in the same
// round as history[i]. Fewer than three observed moves classify as
// Unknown.
func Classify(history, ours []Choice) Archetype {
	if len(history) < minObservedMoves {
		return Unknown
	}

	cooperates := 0
	for _, choice := range history {
		if choice == Cooperate {
			cooperates++
		}
	}
	cooperateRate := float64(cooperates) / float64(len(history))
	consecutiveCooperate, consecutiveBetray := Streaks(history)

	switch {
	case cooperateRate > 0.8:
		return Cooperative
	case cooperateRate < 0.2:
		return Hostile
	case consecutiveCooperate >= 3:
		return Forgiving
	case consecutiveBetray >= 3:
		return Vengeful
	case cooperateRate >= 0.4 && cooperateRate <= 0.6:
		if mirrorsOurMoves(history, ours) {
			return TitForTat
		}
		return Random
	default:
		return Mixed
	}
}

// mirrorsOurMoves reports whether more than 70% of the opponent's
// moves echo our previous move, the tit-for-tat signature.
func mirrorsOurMoves(history, ours []Choice) bool {
	if len(ours) < len(history) || len(history) < 2 {
		return false
	}

	mirrored := 0
	for i := 1; i < len(history); i++ {
		if history[i] == ours[i-1] {
			mirrored++
		}
	}
	return float64(mirrored)/float64(len(history)-1) > 0.7
}
