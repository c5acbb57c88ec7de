package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEvent(t *testing.T) {
	frame, err := encodeEvent("makeChoice", "cooperate")
	require.NoError(t, err)
	assert.Equal(t, `42["makeChoice","cooperate"]`, frame)

	frame, err = encodeEvent("joinGame")
	require.NoError(t, err)
	assert.Equal(t, `42["joinGame"]`, frame)
}

func TestEncodeConnect(t *testing.T) {
	assert.Equal(t, "40", encodeConnect())
}

func TestDecodeEvent(t *testing.T) {
	e, err := decodeEvent(`["roundComplete",{"score":3,"opponentChoice":"betray"}]`)
	require.NoError(t, err)
	assert.Equal(t, "roundComplete", e.Name)
	require.Len(t, e.Args, 1)

	var payload struct {
		Score          float64 `json:"score"`
		OpponentChoice string  `json:"opponentChoice"`
	}
	require.NoError(t, json.Unmarshal(e.Args[0], &payload))
	assert.Equal(t, 3.0, payload.Score)
	assert.Equal(t, "betray", payload.OpponentChoice)
}

func TestDecodeEventRejectsMalformed(t *testing.T) {
	_, err := decodeEvent(`not json`)
	assert.Error(t, err)

	_, err = decodeEvent(`[]`)
	assert.Error(t, err)

	_, err = decodeEvent(`[42]`)
	assert.Error(t, err)
}

func TestDecodeHandshake(t *testing.T) {
	h, err := decodeHandshake(
		`{"sid":"abc123","pingInterval":25000,"pingTimeout":20000}`)
	require.NoError(t, err)
	assert.Equal(t, "abc123", h.SID)
	assert.Equal(t, 25000, h.PingInterval)
	assert.Equal(t, 20000, h.PingTimeout)

	_, err = decodeHandshake(`{}`)
	assert.Error(t, err)
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:3000",
			"ws://localhost:3000/socket.io/?EIO=4&transport=websocket"},
		{"https://game.example.com/",
			"wss://game.example.com/socket.io/?EIO=4&transport=websocket"},
		{"ws://localhost:3000",
			"ws://localhost:3000/socket.io/?EIO=4&transport=websocket"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, endpointURL(tt.in))
	}
}
