package client

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustpvp/botgo/game"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// disconnectedClient is a connection whose read loop has already
// exited, so automatic rejoins return without touching the transport.
func disconnectedClient() *Client {
	done := make(chan struct{})
	close(done)
	return &Client{
		handlers: make(map[string][]Handler),
		waiters:  make(map[string][]chan []json.RawMessage),
		done:     done,
	}
}

func newTestProtocol(name string, callbacks Callbacks) *TrustPVP {
	return NewTrustPVP(disconnectedClient(), name, callbacks, testLogger())
}

func rawEvent(t *testing.T, v interface{}) []json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return []json.RawMessage{data}
}

func TestLoginNameRespectsLengthLimit(t *testing.T) {
	protocol := newTestProtocol("averylongplayernamethatexceeds", Callbacks{})

	for i := 0; i < 50; i++ {
		name := protocol.loginName()
		assert.LessOrEqual(t, len(name), maxNameLength)
		assert.Contains(t, name, "_")
	}
}

func TestLoginNameKeepsShortNamesIntact(t *testing.T) {
	protocol := newTestProtocol("bot", Callbacks{})

	name := protocol.loginName()
	assert.Equal(t, "bot_", name[:4])
}

func TestRecordChoiceCapsHistory(t *testing.T) {
	protocol := newTestProtocol("bot", Callbacks{})

	protocol.mu.Lock()
	for i := 0; i < historyLimit+5; i++ {
		protocol.recordChoice("opp", game.Betray)
	}
	protocol.recordChoice("opp", game.Cooperate)
	protocol.mu.Unlock()

	history := protocol.History("opp")
	require.Len(t, history, historyLimit)
	assert.Equal(t, game.Cooperate, history[historyLimit-1])
	assert.Equal(t, game.Betray, history[0])
}

func TestOnLoginSuccessStoresPlayerID(t *testing.T) {
	protocol := newTestProtocol("bot", Callbacks{})

	protocol.onLoginSuccess(rawEvent(t, map[string]interface{}{
		"playerData":  map[string]string{"id": "p-42"},
		"isNewPlayer": true,
	}))

	protocol.mu.Lock()
	defer protocol.mu.Unlock()
	assert.Equal(t, "p-42", protocol.playerID)
}

func TestOnMatchFoundFiresDecisionCallback(t *testing.T) {
	var gotID, gotName string
	var gotRound int
	protocol := newTestProtocol("bot", Callbacks{
		DecisionNeeded: func(opponentID, opponentName string,
			history []game.Choice, round int) {
			gotID, gotName, gotRound = opponentID, opponentName, round
		},
	})

	protocol.onMatchFound(rawEvent(t, map[string]string{
		"opponent":     "opp-1",
		"opponentName": "rival",
	}))

	assert.Equal(t, "opp-1", gotID)
	assert.Equal(t, "rival", gotName)
	assert.Equal(t, 1, gotRound)
}

func TestOnRoundCompleteRecordsChoiceAndFiresCallback(t *testing.T) {
	var got RoundResult
	protocol := newTestProtocol("bot", Callbacks{
		RoundComplete: func(result RoundResult) { got = result },
	})

	protocol.onRoundComplete(rawEvent(t, map[string]interface{}{
		"score":          3.0,
		"totalScore":     11.0,
		"opponentChoice": "betray",
		"opponentName":   "rival",
		"opponent":       "opp-1",
	}))

	assert.Equal(t, "opp-1", got.OpponentID)
	assert.Equal(t, game.Betray, got.OpponentChoice)
	assert.Equal(t, 3.0, got.Score)
	assert.Equal(t, 11.0, got.TotalScore)
	assert.Equal(t, 1, got.Round)

	require.Len(t, protocol.History("opp-1"), 1)
	assert.Equal(t, 2, protocol.Round("opp-1"))
}

func TestOnRoundCompleteFallsBackToCurrentOpponent(t *testing.T) {
	protocol := newTestProtocol("bot", Callbacks{})
	protocol.onMatchFound(rawEvent(t, map[string]string{
		"opponent":     "opp-7",
		"opponentName": "rival",
	}))

	protocol.onRoundComplete(rawEvent(t, map[string]interface{}{
		"score":          0.0,
		"totalScore":     0.0,
		"opponentChoice": "cooperate",
		"opponentName":   "rival",
	}))

	assert.Len(t, protocol.History("opp-7"), 1)
}

func TestOnRoundCompleteDropsUnknownChoice(t *testing.T) {
	protocol := newTestProtocol("bot", Callbacks{})

	protocol.onRoundComplete(rawEvent(t, map[string]interface{}{
		"opponentChoice": "waffle",
		"opponent":       "opp-1",
	}))

	assert.Empty(t, protocol.History("opp-1"))
}

func TestOnGameEndClearsInGameAndFiresCallback(t *testing.T) {
	var got GameSummary
	protocol := newTestProtocol("bot", Callbacks{
		GameEnd: func(summary GameSummary) { got = summary },
	})
	protocol.onGameJoined(nil)

	protocol.onGameEnd(rawEvent(t, map[string]interface{}{
		"finalScore": 37.0,
		"rounds":     20,
		"message":    "done",
	}))

	assert.Equal(t, 37.0, got.FinalScore)
	assert.Equal(t, 20, got.Rounds)

	protocol.mu.Lock()
	defer protocol.mu.Unlock()
	assert.False(t, protocol.inGame)
}
