// Package notifications provides real-time delivery of chat events over
// websockets, fed by Redis pub/sub so delivery works across instances.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"greenline/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Hub tracks connected websocket clients per user and the group rooms each
// user belongs to. A user may hold several connections at once; every event
// addressed to the user is delivered to all of them.
type Hub struct {
	mu sync.RWMutex

	// userID -> set of active clients
	userConns map[uint]map[*Client]bool

	// groupID -> set of userIDs in the room
	groupRooms map[uint]map[uint]struct{}

	// userID -> set of groupIDs, for cleanup on disconnect
	userGroups map[uint]map[uint]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		userConns:  make(map[uint]map[*Client]bool),
		groupRooms: make(map[uint]map[uint]struct{}),
		userGroups: make(map[uint]map[uint]struct{}),
	}
}

// Register adds a websocket connection for a user. Returns an error when the
// per-user connection limit is exceeded.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[*Client]bool)
	}
	if len(h.userConns[userID]) >= maxConnsPerUser {
		return nil, fmt.Errorf("connection limit reached for user %d", userID)
	}

	client := NewClient(h, conn, userID)
	h.userConns[userID][client] = true
	observability.WebSocketConnections.Inc()

	slog.Debug("hub registered client", "user_id", userID, "clients", len(h.userConns[userID]))
	return client, nil
}

// Unregister removes a client. When the user's last connection closes, the
// user is dropped from every group room they were in.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.userConns[client.UserID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	observability.WebSocketConnections.Dec()

	if len(clients) > 0 {
		return
	}
	delete(h.userConns, client.UserID)

	for groupID := range h.userGroups[client.UserID] {
		if room, ok := h.groupRooms[groupID]; ok {
			delete(room, client.UserID)
			if len(room) == 0 {
				delete(h.groupRooms, groupID)
			}
		}
	}
	delete(h.userGroups, client.UserID)

	slog.Debug("hub unregistered user", "user_id", client.UserID)
}

// IsUserOnline reports whether the user has at least one active connection.
func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.userConns[userID]
	return ok && len(clients) > 0
}

// JoinGroup subscribes a connected user to a group room. Calls for users
// without an active connection are ignored.
func (h *Hub) JoinGroup(userID, groupID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.userConns[userID]; !ok {
		return
	}

	if h.groupRooms[groupID] == nil {
		h.groupRooms[groupID] = make(map[uint]struct{})
	}
	h.groupRooms[groupID][userID] = struct{}{}

	if h.userGroups[userID] == nil {
		h.userGroups[userID] = make(map[uint]struct{})
	}
	h.userGroups[userID][groupID] = struct{}{}
}

// LeaveGroup removes a user from a group room.
func (h *Hub) LeaveGroup(userID, groupID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.groupRooms[groupID]; ok {
		delete(room, userID)
		if len(room) == 0 {
			delete(h.groupRooms, groupID)
		}
	}
	if groups, ok := h.userGroups[userID]; ok {
		delete(groups, groupID)
	}
}

// SendToUser delivers a raw frame to every active connection of a user.
func (h *Hub) SendToUser(userID uint, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.userConns[userID] {
		client.TrySend(frame)
	}
}

// BroadcastToGroup delivers a raw frame to every connected member of a group room.
func (h *Hub) BroadcastToGroup(groupID uint, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.groupRooms[groupID]
	if !ok {
		return
	}
	for userID := range room {
		for client := range h.userConns[userID] {
			client.TrySend(frame)
		}
	}
}

// StartWiring connects the hub to Redis pub/sub. Events published to a user
// channel go to that user's connections; events published to a group channel
// go to the group room.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartChatSubscriber(ctx, func(channel, payload string) {
		var id uint
		if _, err := fmt.Sscanf(channel, "chat:user:%d", &id); err == nil {
			h.SendToUser(id, []byte(payload))
			return
		}
		if _, err := fmt.Sscanf(channel, "chat:group:%d", &id); err == nil {
			h.BroadcastToGroup(id, []byte(payload))
			return
		}
		slog.Warn("hub received event on unknown channel", "channel", channel)
	})
}

// Shutdown closes every websocket connection and clears hub state.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.userConns {
		for client := range clients {
			if err := client.Conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"type":"serverShutdown"}`)); err != nil {
				slog.Debug("shutdown write failed", "user_id", userID, "error", err)
			}
			if err := client.Conn.Close(); err != nil {
				slog.Debug("shutdown close failed", "user_id", userID, "error", err)
			}
			observability.WebSocketConnections.Dec()
		}
	}

	h.userConns = make(map[uint]map[*Client]bool)
	h.groupRooms = make(map[uint]map[uint]struct{})
	h.userGroups = make(map[uint]map[uint]struct{})

	return nil
}
