package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"snapgram/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		observability.Tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracingMiddleware_NamesSpansByRoute(t *testing.T) {
	recorder := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/posts/:id", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(5))
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/api/boom", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusInternalServerError)
	})

	for _, path := range []string{"/api/posts/12", "/api/posts/13", "/health/live", "/api/boom"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		if path != "/health/live" {
			assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"), path)
		}
	}

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	for _, span := range spans[:2] {
		assert.Equal(t, "GET /api/posts/:id", span.Name())
		attrs := spanAttrs(span)
		assert.Equal(t, "/api/posts/:id", attrs["http.route"].AsString())
		assert.Equal(t, int64(5), attrs[attribute.Key(UserIDKey)].AsInt64())
		assert.Equal(t, int64(200), attrs["http.status_code"].AsInt64())
		_, hasPath := attrs["http.path"]
		assert.False(t, hasPath)
	}
	assert.Equal(t, "/api/posts/13", spanAttrs(spans[1])["http.target"].AsString())

	assert.Equal(t, "GET /api/boom", spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	_, hasUser := spanAttrs(spans[2])[attribute.Key(UserIDKey)]
	assert.False(t, hasUser)
}
