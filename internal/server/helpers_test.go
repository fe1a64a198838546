package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"storyId", "story ID"},
		{"notificationId", "notification ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected service.Page
	}{
		{"Defaults", "", service.Page{Page: 1, PerPage: 10}},
		{"Explicit", "?page=3&per_page=5", service.Page{Page: 3, PerPage: 5}},
		{"Negative page", "?page=-2", service.Page{Page: 1, PerPage: 10}},
		{"Zero per page", "?per_page=0", service.Page{Page: 1, PerPage: 10}},
		{"Clamped", "?per_page=1000", service.Page{Page: 1, PerPage: service.MaxPageSize}},
		{"Not a number", "?page=abc", service.Page{Page: 1, PerPage: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var got service.Page
			app.Get("/", func(c *fiber.Ctx) error {
				got = parsePage(c, 10)
				return c.SendStatus(fiber.StatusOK)
			})
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseID(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/items/:storyId", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "storyId")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"Valid", "/items/12", fiber.StatusOK},
		{"Zero", "/items/0", fiber.StatusBadRequest},
		{"Negative", "/items/-4", fiber.StatusBadRequest},
		{"Text", "/items/abc", fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == fiber.StatusBadRequest {
				body := decodeBody[models.ErrorResponse](t, resp)
				assert.Equal(t, "Invalid story ID", body.Error)
				assert.Equal(t, models.CodeValidation, body.Code)
			}
		})
	}
}

func TestBindBody(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		var req createCommentRequest
		if err := bindBody(c, &req); err != nil {
			return nil
		}
		return c.JSON(req)
	})

	resp := doJSON(t, app, http.MethodPost, "/", "", map[string]string{"content": "hello"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/", "", map[string]string{"content": "   "})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeBody[models.ErrorResponse](t, resp)
	assert.Equal(t, "content is required", body.Error)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "application/json")
	r, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = r.Body.Close() }()
	assert.Equal(t, fiber.StatusBadRequest, r.StatusCode)
}
