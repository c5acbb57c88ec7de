// Package stats tracks the bot's play: per-round rewards, per-game
// scores, cooperation rate, and opponent archetype observations. The
// tracker reports through logrus, mirrors its counters to Prometheus
// when metrics are attached, and renders progress plots periodically.
package stats

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/trustpvp/botgo/game"
	"github.com/trustpvp/botgo/utils/floatutils"
)

// plotEvery is the game interval between plot renders
const plotEvery = 10

// Tracker accumulates play statistics. All methods are safe for
// concurrent use.
type Tracker struct {
	log     logrus.FieldLogger
	metrics *Metrics // Optional
	plotDir string   // Empty disables plot rendering

	mu           sync.Mutex
	rewards      []float64
	scores       []float64
	cooperations int
	decisions    int
	games        int
	rounds       int
	archetypes   map[game.Archetype]int
}

// NewTracker returns a Tracker reporting through log. A non-empty
// plotDir enables PNG progress plots there every 10 games; a non-nil
// metrics mirrors the counters to Prometheus.
func NewTracker(log logrus.FieldLogger, plotDir string,
	metrics *Metrics) *Tracker {
	return &Tracker{
		log:        log,
		metrics:    metrics,
		plotDir:    plotDir,
		archetypes: make(map[game.Archetype]int),
	}
}

// RecordDecision notes one of our own choices
func (t *Tracker) RecordDecision(choice game.Choice) {
	t.mu.Lock()
	t.decisions++
	if choice == game.Cooperate {
		t.cooperations++
	}
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.decisions.WithLabelValues(choice.String()).Inc()
	}
}

// RecordArchetype notes the archetype the opponent was classified as
// for one decision.
func (t *Tracker) RecordArchetype(archetype game.Archetype) {
	t.mu.Lock()
	t.archetypes[archetype]++
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.archetypes.WithLabelValues(archetype.String()).Inc()
	}
}

// RecordRound notes a completed round and its shaped reward
func (t *Tracker) RecordRound(reward float64) {
	t.mu.Lock()
	t.rewards = append(t.rewards, reward)
	t.rounds++
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.rounds.Inc()
		t.metrics.meanReward.Set(t.MeanReward(100))
	}
}

// RecordGame notes a finished game and its final score, logging a
// progress summary and rendering plots on the configured interval.
func (t *Tracker) RecordGame(finalScore float64) {
	t.mu.Lock()
	t.scores = append(t.scores, finalScore)
	t.games++
	games := t.games
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.games.Inc()
		t.metrics.finalScore.Set(finalScore)
	}

	t.log.WithFields(logrus.Fields{
		"games":           games,
		"finalScore":      finalScore,
		"meanReward":      t.MeanReward(100),
		"cooperationRate": t.CooperationRate(),
	}).Info("game finished")

	if t.plotDir != "" && games%plotEvery == 0 {
		if err := t.WritePlots(t.plotDir); err != nil {
			t.log.WithError(err).Warn("could not render plots")
		}
	}
}

// Games returns the number of finished games
func (t *Tracker) Games() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.games
}

// Rounds returns the number of completed rounds
func (t *Tracker) Rounds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rounds
}

// CooperationRate returns the fraction of our decisions that were
// cooperation, or 0 before any decision.
func (t *Tracker) CooperationRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.decisions == 0 {
		return 0
	}
	return float64(t.cooperations) / float64(t.decisions)
}

// MeanReward returns the mean shaped reward over the n most recent
// rounds, or over all of them when fewer were played.
func (t *Tracker) MeanReward(n int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tailMean(t.rewards, n)
}

// MeanScore returns the mean final score over the n most recent games
func (t *Tracker) MeanScore(n int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tailMean(t.scores, n)
}

// Report logs a full summary of the tracked statistics
func (t *Tracker) Report() {
	t.mu.Lock()
	archetypes := make(map[string]int, len(t.archetypes))
	for archetype, count := range t.archetypes {
		archetypes[archetype.String()] = count
	}
	games, rounds := t.games, t.rounds
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{
		"games":           games,
		"rounds":          rounds,
		"meanReward":      t.MeanReward(100),
		"meanScore":       t.MeanScore(100),
		"cooperationRate": t.CooperationRate(),
		"archetypes":      archetypes,
	}).Info("session summary")
}

// tailMean averages the last n values, or all of them when fewer exist
func tailMean(values []float64, n int) float64 {
	if len(values) > n {
		values = values[len(values)-n:]
	}
	return floatutils.Mean(values)
}
