package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"github.com/trustpvp/botgo/game"
)

// MaxRounds is the number of rounds in one game against one opponent
const MaxRounds = 20

// historyLimit caps the retained per-opponent choice history
const historyLimit = 20

// maxNameLength is the server's limit on player names
const maxNameLength = 15

// Delays before rejoining the queue after a game-state event
const (
	roundRejoinDelay = time.Second
	gameRejoinDelay  = 2 * time.Second
)

// RoundResult describes one completed round
type RoundResult struct {
	OpponentID     string
	OpponentName   string
	OpponentChoice game.Choice
	Score          float64
	TotalScore     float64
	Round          int // The per-opponent round that just completed
}

// GameSummary describes a finished game
type GameSummary struct {
	FinalScore float64
	Rounds     int
	Message    string
}

// Callbacks are the hooks the game loop invokes. They run on the
// connection's read loop; nil hooks are skipped.
type Callbacks struct {
	// DecisionNeeded fires when a match is found and a choice must be
	// made. history is the opponent's observed choices, oldest first.
	DecisionNeeded func(opponentID, opponentName string,
		history []game.Choice, round int)

	// RoundComplete fires after both players have chosen
	RoundComplete func(result RoundResult)

	// GameEnd fires when a game finishes
	GameEnd func(summary GameSummary)
}

// TrustPVP speaks the game server's event protocol on top of a
// Socket.IO connection: login and matchmaking, choice submission, and
// per-opponent history tracking. After each round or game it rejoins
// the queue on its own.
type TrustPVP struct {
	client     *Client
	log        logrus.FieldLogger
	playerName string
	callbacks  Callbacks
	rng        *rand.Rand

	mu           sync.Mutex
	playerID     string
	inGame       bool
	opponentID   string
	opponentName string
	histories    map[string][]game.Choice
	rounds       map[string]int
}

// NewTrustPVP wires the game protocol onto an established connection.
// playerName is the base name; login appends a timestamp suffix and
// truncates to the server's length limit.
func NewTrustPVP(c *Client, playerName string, callbacks Callbacks,
	log logrus.FieldLogger) *TrustPVP {
	t := &TrustPVP{
		client:     c,
		log:        log,
		playerName: playerName,
		callbacks:  callbacks,
		rng:        rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
		histories:  make(map[string][]game.Choice),
		rounds:     make(map[string]int),
	}

	c.On("loginSuccess", t.onLoginSuccess)
	c.On("gameJoined", t.onGameJoined)
	c.On("matchFound", t.onMatchFound)
	c.On("roundComplete", t.onRoundComplete)
	c.On("gameEnd", t.onGameEnd)
	c.On("opponentDisconnected", t.onOpponentDisconnected)
	c.On("error", t.onError)

	return t
}

// loginName builds the wire name: the base name truncated to leave
// room for a timestamp and random suffix, capped at the server's
// length limit.
func (t *TrustPVP) loginName() string {
	suffix := fmt.Sprintf("_%d_%d", time.Now().Unix()%10000, t.rng.Intn(100))

	base := t.playerName
	if len(base) > maxNameLength-len(suffix) {
		base = base[:maxNameLength-len(suffix)]
	}
	return base + suffix
}

// Login identifies the player to the server. A known player id from a
// previous loginSuccess is included so the server restores the
// existing record.
func (t *TrustPVP) Login(ctx context.Context) error {
	payload := map[string]interface{}{"playerName": t.loginName()}

	t.mu.Lock()
	if t.playerID != "" {
		payload["playerId"] = t.playerID
	}
	t.mu.Unlock()

	return t.client.Emit(ctx, "login", payload)
}

// JoinGame logs in and enters the matchmaking queue. It is a no-op
// while a game is in progress.
func (t *TrustPVP) JoinGame(ctx context.Context) error {
	t.mu.Lock()
	inGame := t.inGame
	t.mu.Unlock()
	if inGame {
		return nil
	}

	if err := t.Login(ctx); err != nil {
		return fmt.Errorf("joingame: %v", err)
	}

	// Give the server a moment to process the login
	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		return fmt.Errorf("joingame: %v", ctx.Err())
	}

	return t.client.Emit(ctx, "joinGame")
}

// MakeChoice submits a choice for the current round
func (t *TrustPVP) MakeChoice(ctx context.Context, choice game.Choice) error {
	return t.client.Emit(ctx, "makeChoice", choice.String())
}

// Leaderboard requests the leaderboard and blocks for the response
func (t *TrustPVP) Leaderboard(ctx context.Context) (json.RawMessage, error) {
	return t.request(ctx, "getLeaderboard", "leaderboardData")
}

// PlayerStats requests this player's statistics and blocks for the
// response.
func (t *TrustPVP) PlayerStats(ctx context.Context) (json.RawMessage, error) {
	return t.request(ctx, "getPlayerStats", "playerStats")
}

// request emits a query event and waits for its single response event
func (t *TrustPVP) request(ctx context.Context, query,
	response string) (json.RawMessage, error) {
	if err := t.client.Emit(ctx, query); err != nil {
		return nil, fmt.Errorf("request: %v", err)
	}
	args, err := t.client.Await(ctx, response)
	if err != nil {
		return nil, fmt.Errorf("request: %v", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("request: %v carried no payload", response)
	}
	return args[0], nil
}

// History returns a copy of an opponent's observed choices, oldest
// first.
func (t *TrustPVP) History(opponentID string) []game.Choice {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]game.Choice(nil), t.histories[opponentID]...)
}

// Round returns the current per-opponent round number, starting at 1
func (t *TrustPVP) Round(opponentID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if round, ok := t.rounds[opponentID]; ok {
		return round
	}
	return 1
}

func (t *TrustPVP) onLoginSuccess(args []json.RawMessage) {
	var data struct {
		PlayerData struct {
			ID string `json:"id"`
		} `json:"playerData"`
		IsNewPlayer bool `json:"isNewPlayer"`
	}
	if err := unmarshalEvent(args, &data); err != nil {
		t.log.WithError(err).Warn("malformed loginSuccess")
		return
	}

	t.mu.Lock()
	t.playerID = data.PlayerData.ID
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{
		"playerId": data.PlayerData.ID,
		"new":      data.IsNewPlayer,
	}).Info("logged in")
}

func (t *TrustPVP) onGameJoined(args []json.RawMessage) {
	t.mu.Lock()
	t.inGame = true
	if t.opponentID != "" {
		t.rounds[t.opponentID] = 1
	}
	t.mu.Unlock()

	t.log.Info("joined game")
}

func (t *TrustPVP) onMatchFound(args []json.RawMessage) {
	var data struct {
		Opponent     string `json:"opponent"`
		OpponentName string `json:"opponentName"`
	}
	if err := unmarshalEvent(args, &data); err != nil {
		t.log.WithError(err).Warn("malformed matchFound")
		return
	}

	t.mu.Lock()
	t.opponentID = data.Opponent
	t.opponentName = data.OpponentName
	if _, ok := t.rounds[data.Opponent]; !ok {
		t.rounds[data.Opponent] = 1
	}
	history := append([]game.Choice(nil), t.histories[data.Opponent]...)
	round := t.rounds[data.Opponent]
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{
		"opponent": data.OpponentName,
		"round":    round,
	}).Info("match found")

	if t.callbacks.DecisionNeeded != nil {
		t.callbacks.DecisionNeeded(data.Opponent, data.OpponentName,
			history, round)
	}
}

func (t *TrustPVP) onRoundComplete(args []json.RawMessage) {
	var data struct {
		Score          float64 `json:"score"`
		TotalScore     float64 `json:"totalScore"`
		OpponentChoice string  `json:"opponentChoice"`
		OpponentName   string  `json:"opponentName"`
		Opponent       string  `json:"opponent"`
	}
	if err := unmarshalEvent(args, &data); err != nil {
		t.log.WithError(err).Warn("malformed roundComplete")
		return
	}

	choice, err := game.ParseChoice(data.OpponentChoice)
	if err != nil {
		t.log.WithError(err).Warn("malformed roundComplete")
		return
	}

	t.mu.Lock()
	opponentID := data.Opponent
	if opponentID == "" {
		opponentID = t.opponentID
	}
	round := t.recordChoice(opponentID, choice)
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{
		"opponent": data.OpponentName,
		"choice":   choice,
		"score":    data.Score,
		"total":    data.TotalScore,
	}).Info("round complete")

	if t.callbacks.RoundComplete != nil {
		t.callbacks.RoundComplete(RoundResult{
			OpponentID:     opponentID,
			OpponentName:   data.OpponentName,
			OpponentChoice: choice,
			Score:          data.Score,
			TotalScore:     data.TotalScore,
			Round:          round,
		})
	}

	go t.rejoin(roundRejoinDelay)
}

// recordChoice appends an opponent's choice to its capped history and
// advances the round counter, returning the round the choice belongs
// to. Callers must hold t.mu.
func (t *TrustPVP) recordChoice(opponentID string, choice game.Choice) int {
	history := append(t.histories[opponentID], choice)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	t.histories[opponentID] = history

	round := t.rounds[opponentID]
	if round == 0 {
		round = 1
	}
	t.rounds[opponentID] = round + 1
	return round
}

func (t *TrustPVP) onGameEnd(args []json.RawMessage) {
	var data struct {
		FinalScore float64 `json:"finalScore"`
		Rounds     int     `json:"rounds"`
		Message    string  `json:"message"`
	}
	if err := unmarshalEvent(args, &data); err != nil {
		t.log.WithError(err).Warn("malformed gameEnd")
		return
	}

	t.mu.Lock()
	t.inGame = false
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{
		"finalScore": data.FinalScore,
		"rounds":     data.Rounds,
	}).Info("game ended")

	if t.callbacks.GameEnd != nil {
		t.callbacks.GameEnd(GameSummary{
			FinalScore: data.FinalScore,
			Rounds:     data.Rounds,
			Message:    data.Message,
		})
	}

	go t.rejoin(gameRejoinDelay)
}

func (t *TrustPVP) onOpponentDisconnected(args []json.RawMessage) {
	var data struct {
		Message string `json:"message"`
	}
	if err := unmarshalEvent(args, &data); err == nil {
		t.log.WithField("message", data.Message).Info("opponent disconnected")
	}

	t.mu.Lock()
	t.inGame = false
	t.mu.Unlock()

	go t.rejoin(roundRejoinDelay)
}

func (t *TrustPVP) onError(args []json.RawMessage) {
	var data struct {
		Message string `json:"message"`
	}
	if err := unmarshalEvent(args, &data); err != nil {
		t.log.Warn("server reported an error")
		return
	}
	t.log.WithField("message", data.Message).Error("server error")
}

// rejoin re-enters the matchmaking queue after a delay, unless the
// connection has gone away.
func (t *TrustPVP) rejoin(delay time.Duration) {
	select {
	case <-time.After(delay):
	case <-t.client.Done():
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.JoinGame(ctx); err != nil {
		t.log.WithError(err).Warn("could not rejoin")
	}
}

// unmarshalEvent decodes the first event argument into v
func unmarshalEvent(args []json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return fmt.Errorf("unmarshalevent: event carried no payload")
	}
	return json.Unmarshal(args[0], v)
}
