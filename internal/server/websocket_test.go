package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/notifications"
	"snapgram/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// startLiveServer serves srv.app on a loopback listener with the hub
// subscribed to Redis.
func startLiveServer(t *testing.T, srv *Server) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NotNil(t, srv.notifier)
	require.NoError(t, srv.hub.StartWiring(ctx, srv.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.app.Listener(ln) }()
	t.Cleanup(func() {
		_ = srv.hub.Shutdown(context.Background())
		_ = srv.app.Shutdown()
	})
	return ln.Addr().String()
}

func issueTicket(t *testing.T, srv *Server, token string) string {
	t.Helper()
	resp := doJSON(t, srv.app, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return decodeBody[map[string]interface{}](t, resp)["ticket"].(string)
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWebsocketLiveNotifications(t *testing.T) {
	srv, db, _ := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, alice, "posts/a.jpg")
	addr := startLiveServer(t, srv)

	ticket := issueTicket(t, srv, tokenFor(t, alice))
	url := fmt.Sprintf("ws://%s/api/ws?ticket=%s", addr, ticket)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	ev := readEvent(t, conn)
	require.Equal(t, notifications.EventConnected, ev.Type)
	var hello map[string]uint
	require.NoError(t, json.Unmarshal(ev.Payload, &hello))
	assert.Equal(t, alice.ID, hello["user_id"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, notifications.EventPong, readEvent(t, conn).Type)

	require.Eventually(t, func() bool { return srv.hub.IsOnline(alice.ID) }, 2*time.Second, 10*time.Millisecond)

	like := doJSON(t, srv.app, http.MethodPost, postPath(post.ID, "/like"), tokenFor(t, bob), nil)
	require.Equal(t, fiber.StatusOK, like.StatusCode)

	ev = readEvent(t, conn)
	require.Equal(t, notifications.EventNewNotification, ev.Type)
	var n models.Notification
	require.NoError(t, json.Unmarshal(ev.Payload, &n))
	assert.Equal(t, models.NotificationLike, n.Type)
	assert.Equal(t, alice.ID, n.RecipientID)
	assert.Equal(t, "bob", n.Sender.Username)
	assert.Empty(t, n.Sender.Email)

	// A ticket is consumed by the first upgrade.
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocketRejectsBareUpgrade(t *testing.T) {
	srv, _, _ := newTestServer(t)
	addr := startLiveServer(t, srv)

	_, resp, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/api/ws", addr), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
