package game

// StateDim is the fixed dimension of the state vector fed to the
// learning agents.
const StateDim = 6

// streakCap bounds the consecutive-move features before normalization
const streakCap = 5

// Featurize builds the agent's state vector from the opponent's
// observed choice history and the current round. The features, in
// order:
//
//	0: round / maxRounds
//	1: opponent cooperation rate
//	2: opponent betrayal rate
//	3: min(consecutive cooperations, 5) / 5
//	4: min(consecutive betrayals, 5) / 5
//	5: last-round flag
//
// With no observed history the rates default to 0.5 each and the
// streaks to 0.
func Featurize(history []Choice, round, maxRounds int) []float64 {
	cooperateRate, betrayRate := 0.5, 0.5
	consecutiveCooperate, consecutiveBetray := 0, 0

	if len(history) > 0 {
		cooperates := 0
		for _, choice := range history {
			if choice == Cooperate {
				cooperates++
			}
		}
		cooperateRate = float64(cooperates) / float64(len(history))
		betrayRate = float64(len(history)-cooperates) / float64(len(history))
		consecutiveCooperate, consecutiveBetray = Streaks(history)
	}

	isLastRound := 0.0
	if round >= maxRounds-1 {
		isLastRound = 1.0
	}

	return []float64{
		float64(round) / float64(maxRounds),
		cooperateRate,
		betrayRate,
		float64(min(consecutiveCooperate, streakCap)) / streakCap,
		float64(min(consecutiveBetray, streakCap)) / streakCap,
		isLastRound,
	}
}

// Streaks returns the length of the opponent's most recent run of
// cooperations and betrayals. Exactly one of the two is non-zero for
// a non-empty history.
func Streaks(history []Choice) (cooperate, betray int) {
	if len(history) == 0 {
		return 0, 0
	}

	last := history[len(history)-1]
	run := 0
	for i := len(history) - 1; i >= 0 && history[i] == last; i-- {
		run++
	}

	if last == Cooperate {
		return run, 0
	}
	return 0, run
}
