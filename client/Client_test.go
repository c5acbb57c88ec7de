package client

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// idleClient is a connection whose read loop has not exited, so Await
// blocks on the event rather than on the closed-connection branch.
func idleClient() *Client {
	return &Client{
		log:      testLogger(),
		handlers: make(map[string][]Handler),
		waiters:  make(map[string][]chan []json.RawMessage),
		done:     make(chan struct{}),
	}
}

func TestAwaitRemovesWaiterOnContextExpiry(t *testing.T) {
	c := idleClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Await(ctx, "getLeaderboard")
	require.Error(t, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.NotContains(t, c.waiters, "getLeaderboard")
}

func TestRemoveWaiterKeepsOtherWaiters(t *testing.T) {
	c := idleClient()

	abandoned := make(chan []json.RawMessage, 1)
	live := make(chan []json.RawMessage, 1)
	c.waiters["getPlayerStats"] = []chan []json.RawMessage{abandoned, live}

	c.removeWaiter("getPlayerStats", abandoned)

	require.Len(t, c.waiters["getPlayerStats"], 1)
	assert.Equal(t, live, c.waiters["getPlayerStats"][0])
}

func TestDispatchClaimsWaiterBeforeExpiry(t *testing.T) {
	c := idleClient()

	ch := make(chan []json.RawMessage, 1)
	c.waiters["getLeaderboard"] = []chan []json.RawMessage{ch}

	c.dispatch(`2["getLeaderboard",[{"name":"bot","score":12}]]`)

	require.Len(t, <-ch, 1)
	assert.NotContains(t, c.waiters, "getLeaderboard")

	// Removing the already-claimed waiter is a no-op
	c.removeWaiter("getLeaderboard", ch)
	assert.NotContains(t, c.waiters, "getLeaderboard")
}
