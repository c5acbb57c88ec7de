// Package bot wires the trust game protocol to a learning agent: it
// turns match events into featurized states, routes the agent's
// actions through the strategy layer, shapes round results into
// rewards, and manages the agent's learning and persistence cycle.
package bot

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"github.com/trustpvp/botgo/agent"
	"github.com/trustpvp/botgo/client"
	"github.com/trustpvp/botgo/game"
	"github.com/trustpvp/botgo/stats"
)

// ourHistoryLimit caps the retained record of our own choices per
// opponent, matching the opponent-history cap.
const ourHistoryLimit = 20

// sendTimeout bounds the choice submission triggered by a match event
const sendTimeout = 5 * time.Second

// Sender submits a round choice to the game server
type Sender interface {
	MakeChoice(ctx context.Context, choice game.Choice) error
}

// decision is the state of an unanswered round: everything recorded
// when the choice was made, awaiting the round's result.
type decision struct {
	state     []float64
	logProb   float64
	value     float64
	choice    game.Choice
	archetype game.Archetype
	round     int
}

// Bot orchestrates one agent's play. Its event methods run on the
// connection's read loop; the accessors are safe from any goroutine.
type Bot struct {
	agent   agent.Agent
	sender  Sender
	tracker *stats.Tracker
	journal *game.Journal
	log     logrus.FieldLogger
	rng     *rand.Rand

	modelsDir    string
	saveInterval int // In games

	mu      sync.Mutex
	pending map[string]decision
	ours    map[string][]game.Choice
	games   int
}

// New returns a Bot playing through sender with the given agent.
// Parameters are persisted under modelsDir every saveInterval games.
func New(a agent.Agent, sender Sender, tracker *stats.Tracker,
	modelsDir string, saveInterval int, log logrus.FieldLogger) *Bot {
	if saveInterval < 1 {
		panic(fmt.Sprintf("new: save interval must be positive, got %d",
			saveInterval))
	}

	return &Bot{
		agent:        a,
		sender:       sender,
		tracker:      tracker,
		journal:      game.NewJournal(game.DefaultJournalCapacity),
		log:          log,
		rng:          rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
		modelsDir:    modelsDir,
		saveInterval: saveInterval,
		pending:      make(map[string]decision),
		ours:         make(map[string][]game.Choice),
	}
}

// Callbacks returns the protocol hooks driving this bot
func (b *Bot) Callbacks() client.Callbacks {
	return client.Callbacks{
		DecisionNeeded: b.OnDecision,
		RoundComplete:  b.OnRoundComplete,
		GameEnd:        b.OnGameEnd,
	}
}

// LoadModels restores the agent's parameters from the models
// directory. Missing blobs leave the fresh parameters in place;
// corrupt blobs are removed so the next save starts clean.
func (b *Bot) LoadModels() {
	ok, err := b.agent.Load(b.modelsDir)
	switch {
	case err != nil:
		b.log.WithError(err).Warn("saved models unusable, starting fresh")
		if err := os.RemoveAll(b.modelsDir); err != nil {
			b.log.WithError(err).Warn("could not remove models directory")
		}
	case ok:
		b.log.WithField("dir", b.modelsDir).Info("restored saved models")
	default:
		b.log.Info("no saved models, starting fresh")
	}
}

// SaveModels persists the agent's parameters
func (b *Bot) SaveModels() {
	if err := b.agent.Save(b.modelsDir); err != nil {
		b.log.WithError(err).Error("could not save models")
		return
	}
	b.log.WithField("dir", b.modelsDir).Info("models saved")
}

// Journal returns the bot's experience journal
func (b *Bot) Journal() *game.Journal {
	return b.journal
}

// OnDecision answers a match event: featurize, classify the opponent,
// ask the agent, apply the strategy layer, and submit the choice. The
// adjusted choice is what the agent will learn from.
func (b *Bot) OnDecision(opponentID, opponentName string,
	history []game.Choice, round int) {
	if round == 1 {
		b.log.WithField("opponent", opponentName).Info("game starting")
	}

	state := game.Featurize(history, round, client.MaxRounds)

	b.mu.Lock()
	ours := append([]game.Choice(nil), b.ours[opponentID]...)
	b.mu.Unlock()

	archetype := game.Classify(history, ours)
	b.tracker.RecordArchetype(archetype)

	action, logProb, value := b.agent.Act(state)
	raw := game.ChoiceFromAction(action)
	choice := game.AdjustChoice(raw, archetype, round, client.MaxRounds,
		history, b.rng)
	b.tracker.RecordDecision(choice)

	b.mu.Lock()
	b.pending[opponentID] = decision{
		state:     state,
		logProb:   logProb,
		value:     value,
		choice:    choice,
		archetype: archetype,
		round:     round,
	}
	b.ours[opponentID] = appendCapped(b.ours[opponentID], choice,
		ourHistoryLimit)
	b.mu.Unlock()

	b.log.WithFields(logrus.Fields{
		"round":     round,
		"choice":    choice,
		"archetype": archetype,
	}).Debug("decision made")

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := b.sender.MakeChoice(ctx, choice); err != nil {
		b.log.WithError(err).Error("could not submit choice")
	}
}

// OnRoundComplete answers a round result: shape the reward, hand the
// transition to the agent and the journal, and trigger a learning pass
// when the episode ends.
func (b *Bot) OnRoundComplete(result client.RoundResult) {
	b.mu.Lock()
	d, ok := b.pending[result.OpponentID]
	delete(b.pending, result.OpponentID)
	b.mu.Unlock()
	if !ok {
		b.log.WithField("opponent", result.OpponentName).
			Warn("round result without a pending decision")
		return
	}

	reward := game.ShapeReward(d.choice, result.OpponentChoice, result.Score,
		d.archetype, d.round, client.MaxRounds)
	done := d.round >= client.MaxRounds

	b.agent.Remember(d.state, d.choice.Action(), d.logProb, d.value, reward,
		done)
	b.journal.Add(game.Experience{
		State:   d.state,
		Action:  d.choice.Action(),
		LogProb: d.logProb,
		Value:   d.value,
		Reward:  reward,
		Done:    done,
	})
	b.tracker.RecordRound(reward)

	b.log.WithFields(logrus.Fields{
		"round":    d.round,
		"choice":   d.choice,
		"opponent": result.OpponentChoice,
		"score":    result.Score,
		"reward":   reward,
	}).Debug("round processed")

	if done {
		b.agent.Learn()
	}
}

// OnGameEnd answers a game end: record the score and save the agent's
// parameters on the configured interval.
func (b *Bot) OnGameEnd(summary client.GameSummary) {
	b.tracker.RecordGame(summary.FinalScore)

	b.mu.Lock()
	b.games++
	games := b.games
	b.mu.Unlock()

	if games%b.saveInterval == 0 {
		b.SaveModels()
	}
}

// appendCapped appends to a slice bounded at limit, dropping the
// oldest entries.
func appendCapped(history []game.Choice, choice game.Choice,
	limit int) []game.Choice {
	history = append(history, choice)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}
