package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketHandler handles GET /api/ws. The connection is a one-way delivery
// channel: the client authenticates with a ticket, gets registered with the
// hub and joined to the rooms of every group it belongs to, then receives
// events until it disconnects.
func (s *Server) WebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		if s.hub == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"real-time transport unavailable"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			slog.Warn("websocket register failed", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"connection limit reached"}`))
			_ = conn.Close()
			return
		}

		// Join the rooms of every group the user is a member of, so group
		// events reach this connection without a separate subscribe step.
		groups, err := s.groupRepo.ListForUser(ctx, userID)
		if err != nil {
			slog.Warn("websocket group join failed", "user_id", userID, "error", err)
		} else {
			for _, g := range groups {
				s.hub.JoinGroup(userID, g.ID)
			}
		}

		welcome, _ := json.Marshal(fiber.Map{
			"type":    "connected",
			"payload": fiber.Map{"user_id": userID},
		})
		client.TrySend(welcome)

		go client.WritePump()

		// ReadPump blocks until the connection closes and unregisters the
		// client on the way out.
		client.ReadPump()
	})
}
