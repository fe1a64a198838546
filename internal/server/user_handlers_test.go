package server

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"snapgram/internal/models"
	"snapgram/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileResponse struct {
	User    models.UserProfile `json:"user"`
	Posts   []models.Post      `json:"posts"`
	HasMore bool               `json:"has_more"`
}

func TestGetProfile(t *testing.T) {
	srv, db, _ := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	testutil.Follow(t, db, bob, alice)
	testutil.Follow(t, db, carol, alice)
	testutil.Follow(t, db, alice, carol)
	testutil.CreatePost(t, db, alice, "posts/a.jpg")
	testutil.CreatePost(t, db, alice, "posts/b.mp4")

	resp := doJSON(t, srv.app, http.MethodGet, "/api/users/alice", tokenFor(t, bob), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody[profileResponse](t, resp)

	assert.Equal(t, "alice", body.User.Username)
	assert.Empty(t, body.User.Email)
	assert.EqualValues(t, 2, body.User.PostsCount)
	assert.EqualValues(t, 2, body.User.FollowersCount)
	assert.EqualValues(t, 1, body.User.FollowingCount)
	assert.True(t, body.User.IsFollowing)
	assert.False(t, body.User.IsSelf)
	require.Len(t, body.Posts, 2)
	assert.Equal(t, "posts/b.mp4", body.Posts[0].Media)
	assert.Empty(t, body.Posts[0].User.Email)

	resp = doJSON(t, srv.app, http.MethodGet, "/api/users/alice", tokenFor(t, alice), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	self := decodeBody[profileResponse](t, resp)
	assert.True(t, self.User.IsSelf)
	assert.Equal(t, "alice@example.com", self.User.Email)

	resp = doJSON(t, srv.app, http.MethodGet, "/api/users/nobody", tokenFor(t, alice), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestToggleFollow(t *testing.T) {
	srv, db, _ := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	path := "/api/users/" + strconv.FormatUint(uint64(bob.ID), 10) + "/follow"

	resp := doJSON(t, srv.app, http.MethodPost, path, tokenFor(t, alice), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decodeBody[models.FollowResult](t, resp)
	assert.True(t, result.Following)
	assert.EqualValues(t, 1, result.FollowersCount)

	var notes []models.Notification
	require.NoError(t, db.Where("recipient_id = ?", bob.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFollow, notes[0].Type)

	resp = doJSON(t, srv.app, http.MethodPost, path, tokenFor(t, alice), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result = decodeBody[models.FollowResult](t, resp)
	assert.False(t, result.Following)
	assert.Zero(t, result.FollowersCount)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"Self", "/api/users/" + strconv.FormatUint(uint64(alice.ID), 10) + "/follow", fiber.StatusUnprocessableEntity},
		{"Not a number", "/api/users/abc/follow", fiber.StatusBadRequest},
		{"Unknown user", "/api/users/9999/follow", fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, srv.app, http.MethodPost, tt.path, tokenFor(t, alice), nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestFollowersAndFollowing(t *testing.T) {
	srv, db, _ := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	testutil.Follow(t, db, bob, alice)
	testutil.Follow(t, db, carol, alice)

	resp := doJSON(t, srv.app, http.MethodGet, "/api/users/alice/followers", tokenFor(t, bob), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody[struct {
		Users []models.User `json:"users"`
	}](t, resp)
	require.Len(t, body.Users, 2)
	for _, u := range body.Users {
		assert.Empty(t, u.Email)
	}

	resp = doJSON(t, srv.app, http.MethodGet, "/api/users/bob/following", tokenFor(t, bob), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	following := decodeBody[struct {
		Users []models.User `json:"users"`
	}](t, resp)
	require.Len(t, following.Users, 1)
	assert.Equal(t, "alice", following.Users[0].Username)

	resp = doJSON(t, srv.app, http.MethodGet, "/api/users/nobody/followers", tokenFor(t, bob), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetUserPosts(t *testing.T) {
	srv, db, _ := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	for i := 0; i < 3; i++ {
		testutil.CreatePost(t, db, alice, "posts/p.jpg")
	}

	resp := doJSON(t, srv.app, http.MethodGet, "/api/users/alice/posts?per_page=2", tokenFor(t, alice), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody[postPageResponse](t, resp)
	assert.Len(t, body.Posts, 2)
	assert.True(t, body.HasMore)

	resp = doJSON(t, srv.app, http.MethodGet, "/api/users/alice/posts?per_page=2&page=2", tokenFor(t, alice), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody[postPageResponse](t, resp)
	assert.Len(t, body.Posts, 1)
	assert.False(t, body.HasMore)
}

func TestSearchUsers(t *testing.T) {
	srv, db, _ := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreateUser(t, db, "alicia")
	testutil.CreateUser(t, db, "bob", func(u *models.User) { u.FullName = "Bob Alison" })
	testutil.CreateUser(t, db, "zed")

	resp := doJSON(t, srv.app, http.MethodGet, "/api/search?q=ali", tokenFor(t, alice), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody[struct {
		Users []models.User `json:"users"`
	}](t, resp)
	assert.Len(t, body.Users, 2)
	for _, u := range body.Users {
		assert.Empty(t, u.Email)
		assert.NotEqual(t, alice.ID, u.ID)
	}

	resp = doJSON(t, srv.app, http.MethodGet, "/api/search?q=", tokenFor(t, alice), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	empty := decodeBody[struct {
		Users []models.User `json:"users"`
	}](t, resp)
	assert.Empty(t, empty.Users)
}

func TestUpdateProfile(t *testing.T) {
	srv, db, _ := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	token := tokenFor(t, alice)

	resp := doJSON(t, srv.app, http.MethodPut, "/api/profile", token, map[string]interface{}{
		"bio":        "hello there",
		"website":    "https://example.com",
		"is_private": true,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	user := decodeBody[models.User](t, resp)
	assert.Equal(t, "hello there", user.Bio)
	assert.Equal(t, "https://example.com", user.Website)
	assert.True(t, user.IsPrivate)
	assert.Equal(t, "alice", user.FullName)

	var stored models.User
	require.NoError(t, db.First(&stored, alice.ID).Error)
	assert.Equal(t, "x", stored.Password)

	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{"Bio too long", map[string]interface{}{"bio": strings.Repeat("b", 151)}},
		{"Bad website", map[string]interface{}{"website": "not a url"}},
		{"Name too long", map[string]interface{}{"full_name": strings.Repeat("n", 101)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, srv.app, http.MethodPut, "/api/profile", token, tt.payload)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestUpdateAvatar(t *testing.T) {
	srv, db, _ := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	token := tokenFor(t, alice)

	resp := doMultipart(t, srv.app, "/api/profile/avatar", token, "avatar", "me.png", testutil.TinyPNG(t, 800, 800), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	user := decodeBody[models.User](t, resp)
	require.True(t, strings.HasPrefix(user.Avatar, "avatars/"), user.Avatar)

	w, h := testutil.DecodeSize(t, filepath.Join(srv.config.MediaUploadDir, filepath.FromSlash(user.Avatar)))
	assert.Equal(t, 400, w)
	assert.Equal(t, 400, h)

	resp = doMultipart(t, srv.app, "/api/profile/avatar", token, "avatar", "clip.mp4", []byte("not an image"), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doMultipart(t, srv.app, "/api/profile/avatar", token, "other", "me.png", testutil.TinyPNG(t, 10, 10), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeBody[models.ErrorResponse](t, resp)
	assert.Equal(t, "avatar file is required", body.Error)
}
