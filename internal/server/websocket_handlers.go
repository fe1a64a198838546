package server

import (
	"encoding/json"
	"log/slog"

	"snapgram/internal/middleware"
	"snapgram/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler returns the live channel handler. Authentication is done by
// route middleware; the user id is read from connection locals.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		uid, ok := conn.Locals("userID").(uint)
		if !ok || uid == 0 {
			if cerr := conn.Close(); cerr != nil {
				slog.Warn("websocket close error", "error", cerr)
			}
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			slog.Warn("websocket registration refused", "user_id", uid, "error", err)
			msg, _ := json.Marshal(map[string]string{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		client.IncomingHandler = s.handleClientFrame
		sendEvent(client, notifications.EventConnected, map[string]uint{"user_id": uid})

		go client.WritePump()
		client.ReadPump()
	})
}

// handleClientFrame answers application-level pings. Anything else a client
// sends is ignored.
func (s *Server) handleClientFrame(client *notifications.Client, message []byte) {
	var frame struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		slog.Debug("ignoring malformed websocket frame", "user_id", client.UserID)
		return
	}
	if frame.Type == "ping" {
		sendEvent(client, notifications.EventPong, nil)
	}
}
