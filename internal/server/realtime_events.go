package server

import (
	"log/slog"

	"snapgram/internal/notifications"
)

// sendEvent queues an event for a single connection.
func sendEvent(client *notifications.Client, eventType string, payload interface{}) {
	msg, err := notifications.Event{Type: eventType, Payload: payload}.Encode()
	if err != nil {
		slog.Error("failed to encode event", "type", eventType, "error", err)
		return
	}
	client.TrySend([]byte(msg))
}
