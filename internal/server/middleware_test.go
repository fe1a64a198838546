package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"snapgram/internal/cache"
	"snapgram/internal/config"
	"snapgram/internal/middleware"
	"snapgram/internal/models"
	"snapgram/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authTestApp(t *testing.T) (*fiber.App, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := &Server{config: &config.Config{JWTSecret: testSecret}, redis: rdb}
	app := fiber.New()
	echo := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	}
	app.Get("/api/ws/test", s.AuthRequired(), echo)
	app.Get("/api/other", s.AuthRequired(), echo)
	return app, rdb
}

func TestServer_AuthRequired(t *testing.T) {
	app, rdb := authTestApp(t)
	now := time.Now()

	valid, claims, err := middleware.IssueToken(testSecret, 42, "alice", now)
	require.NoError(t, err)
	expired, _, err := middleware.IssueToken(testSecret, 42, "alice", now.Add(-2*middleware.TokenTTL))
	require.NoError(t, err)
	forged, _, err := middleware.IssueToken("another-secret-that-is-long-enough-000000", 42, "alice", now)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"No credentials", "/api/other", "", fiber.StatusUnauthorized},
		{"Valid bearer", "/api/other", "Bearer " + valid, fiber.StatusOK},
		{"Lowercase scheme", "/api/other", "bearer " + valid, fiber.StatusOK},
		{"Expired token", "/api/other", "Bearer " + expired, fiber.StatusUnauthorized},
		{"Wrong signature", "/api/other", "Bearer " + forged, fiber.StatusUnauthorized},
		{"Garbage", "/api/other", "Bearer not.a.token", fiber.StatusUnauthorized},
		{"Bearer on websocket path", "/api/ws/test", "Bearer " + valid, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	t.Run("Query token allowed outside websocket paths", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/other?token="+valid, "", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody[map[string]interface{}](t, resp)
		assert.EqualValues(t, 42, body["userID"])
	})

	t.Run("Query token rejected on websocket paths", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/ws/test?token="+valid, "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Revoked token", func(t *testing.T) {
		require.NoError(t, rdb.Set(context.Background(), cache.BlacklistKey(claims.JTI), "1", time.Minute).Err())
		resp := doJSON(t, app, http.MethodGet, "/api/other", valid, nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		body := decodeBody[models.ErrorResponse](t, resp)
		assert.Equal(t, "Token has been revoked", body.Error)
	})
}

func TestAuthRequired_WSTicketIsSingleUse(t *testing.T) {
	app, rdb := authTestApp(t)
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, cache.WSTicketKey("ticket-1"), "123", time.Minute).Err())

	resp := doJSON(t, app, http.MethodGet, "/api/ws/test?ticket=ticket-1", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]interface{}](t, resp)
	assert.EqualValues(t, 123, body["userID"])

	exists, err := rdb.Exists(ctx, cache.WSTicketKey("ticket-1")).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	resp = doJSON(t, app, http.MethodGet, "/api/ws/test?ticket=ticket-1", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/ws/test?ticket=unknown", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired_InvalidTicketFallsBackOutsideWebsocket(t *testing.T) {
	app, _ := authTestApp(t)
	token, _, err := middleware.IssueToken(testSecret, 7, "bob", time.Now())
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodGet, "/api/other?ticket=stale", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminRequired(t *testing.T) {
	srv, db, _ := newTestServer(t)
	admin := testutil.CreateUser(t, db, "root", func(u *models.User) { u.IsAdmin = true })
	user := testutil.CreateUser(t, db, "plain")

	resp := doJSON(t, srv.app, http.MethodGet, "/api/admin/reports", tokenFor(t, user), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, srv.app, http.MethodGet, "/api/admin/reports", tokenFor(t, admin), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	ghost := &models.User{ID: 9999, Username: "ghost"}
	resp = doJSON(t, srv.app, http.MethodGet, "/api/admin/reports", tokenFor(t, ghost), nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
