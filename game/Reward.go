package game

// rewardScale normalizes shaped rewards into a range the value
// network handles comfortably.
const rewardScale = 5.0

// ShapeReward converts a round's raw score into the learning reward.
// On top of the score it rewards established trust, punishes being
// exploited, and biases the agent according to the opponent's
// archetype and the game phase. The result is divided by 5.
func ShapeReward(player, opponent Choice, score float64,
	archetype Archetype, round, maxRounds int) float64 {
	reward := score

	// Mutual cooperation builds long-term value beyond the raw score
	if player == Cooperate && opponent == Cooperate {
		reward += 1.0
	}

	// Being exploited hurts more than the score alone suggests
	if player == Cooperate && opponent == Betray {
		reward -= 1.5
	}

	switch archetype {
	case Cooperative:
		if player == Betray {
			reward -= 1.0
		}
	case Hostile:
		if player == Cooperate {
			reward -= 0.5
		}
	case TitForTat:
		if player == Cooperate {
			reward += 0.5
		}
	}

	// Defection pays in the final rounds
	if round >= maxRounds-3 && player == Betray {
		reward += 0.5
	}

	return reward / rewardScale
}
