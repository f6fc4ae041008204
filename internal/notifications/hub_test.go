package notifications

import (
	"fmt"
	"testing"

	"greenline/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainOne(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case frame := <-c.Send:
		return frame
	default:
		t.Fatal("expected a queued frame")
		return nil
	}
}

func TestHub_RegisterAndSendToUser(t *testing.T) {
	hub := NewHub()

	c1, err := hub.Register(1, nil)
	require.NoError(t, err)
	c2, err := hub.Register(1, nil)
	require.NoError(t, err)
	assert.True(t, hub.IsUserOnline(1))
	assert.False(t, hub.IsUserOnline(2))

	// Every connection of the user receives the frame.
	hub.SendToUser(1, []byte("ping"))
	assert.Equal(t, "ping", string(drainOne(t, c1)))
	assert.Equal(t, "ping", string(drainOne(t, c2)))

	hub.SendToUser(2, []byte("nobody home"))
	assert.Empty(t, c1.Send)
}

func TestHub_ConnectionLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(1, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(1, nil)
	assert.Error(t, err)

	// A different user is unaffected.
	_, err = hub.Register(2, nil)
	assert.NoError(t, err)
}

func TestHub_GroupRooms(t *testing.T) {
	hub := NewHub()
	c1, err := hub.Register(1, nil)
	require.NoError(t, err)
	c2, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.JoinGroup(1, 10)
	hub.JoinGroup(2, 10)
	// Offline users never enter a room.
	hub.JoinGroup(3, 10)

	hub.BroadcastToGroup(10, []byte("hello room"))
	assert.Equal(t, "hello room", string(drainOne(t, c1)))
	assert.Equal(t, "hello room", string(drainOne(t, c2)))

	hub.LeaveGroup(2, 10)
	hub.BroadcastToGroup(10, []byte("after leave"))
	assert.Equal(t, "after leave", string(drainOne(t, c1)))
	assert.Empty(t, c2.Send)

	hub.BroadcastToGroup(99, []byte("no such room"))
	assert.Empty(t, c1.Send)
}

func TestHub_UnregisterCleansUpRooms(t *testing.T) {
	hub := NewHub()
	c1, err := hub.Register(1, nil)
	require.NoError(t, err)
	c1b, err := hub.Register(1, nil)
	require.NoError(t, err)
	hub.JoinGroup(1, 10)

	// Dropping one of two connections keeps the user in the room.
	hub.Unregister(c1)
	hub.BroadcastToGroup(10, []byte("still here"))
	assert.Equal(t, "still here", string(drainOne(t, c1b)))

	// Dropping the last one evicts the user from every room.
	hub.Unregister(c1b)
	assert.False(t, hub.IsUserOnline(1))
	hub.BroadcastToGroup(10, []byte("gone"))
	assert.Empty(t, c1b.Send)

	// Unregistering twice is harmless.
	hub.Unregister(c1b)
}

func TestClient_TrySendBackpressure(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < cap(c.Send); i++ {
		c.TrySend([]byte(fmt.Sprintf("frame %d", i)))
	}
	require.Len(t, c.Send, cap(c.Send))

	// The overflow frame is dropped, not queued, and nothing blocks.
	before := testutil.ToFloat64(observability.WebSocketBackpressureDrops.WithLabelValues("full"))
	c.TrySend([]byte("overflow"))
	assert.Len(t, c.Send, cap(c.Send))
	after := testutil.ToFloat64(observability.WebSocketBackpressureDrops.WithLabelValues("full"))
	assert.Equal(t, before+1, after)

	// Queued frames survive the drop in order.
	assert.Equal(t, "frame 0", string(drainOne(t, c)))
}

func TestClient_TrySendClosedChannel(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)
	close(c.Send)

	assert.NotPanics(t, func() {
		c.TrySend([]byte("late frame"))
	})
}
