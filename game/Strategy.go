package game

import (
	"golang.org/x/exp/rand"
)

// endgameRounds is the number of final rounds in which betrayal is
// forced regardless of archetype.
const endgameRounds = 2

// AdjustChoice overrides the policy's raw choice for specific
// opponent archetypes and for the endgame. The adjustment is a fixed
// heuristic layered on top of the learned policy; archetypes without
// a listed override keep the policy's choice.
func AdjustChoice(raw Choice, archetype Archetype, round, maxRounds int,
	history []Choice, rng *rand.Rand) Choice {
	// Defection dominates once reputation no longer matters
	if round >= maxRounds-endgameRounds {
		return Betray
	}

	switch archetype {
	case Cooperative:
		// Mostly cooperate, with occasional exploitation once trust
		// is established
		if round > 5 && rng.Float64() < 0.2 {
			return Betray
		}
		return Cooperate

	case Hostile:
		return Betray

	case TitForTat:
		// Mirror their last move; lead with cooperation
		if len(history) == 0 {
			return Cooperate
		}
		if history[len(history)-1] == Cooperate {
			return Cooperate
		}
		return Betray

	case Unknown, Forgiving, Vengeful, Random, Mixed:
		return raw

	default:
		return raw
	}
}
