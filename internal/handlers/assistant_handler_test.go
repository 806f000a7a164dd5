package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/acadbuddy/acadbuddy-api/internal/middleware"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assistantPath = "/functions/v1/study-assistant"

func newAssistantApp(t *testing.T, upstream http.HandlerFunc) (*fiber.App, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		upstream(w, r)
	}))
	t.Cleanup(server.Close)

	service := services.NewAssistantService(services.AssistantConfig{
		GatewayURL:  server.URL,
		APIKey:      "test-key",
		Model:       "test-model",
		MaxFailures: 5,
	}, nil)
	handler := NewAssistantHandler(service, nil)

	app := fiber.New()
	app.Use(assistantPath, middleware.StrictCORS(middleware.OriginPolicy{
		Origins:  []string{"https://acadbuddy.app"},
		Suffixes: []string{".lovable.app"},
	}))
	app.Post(assistantPath, handler.Chat)
	return app, &calls
}

func postAssistant(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, assistantPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://preview.lovable.app")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func conversation(n int, role string) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf(`{"role":%q,"content":"question %d"}`, role, i))
	}
	return `{"messages":[` + strings.Join(parts, ",") + `]}`
}

func TestAssistantRejectsTooManyMessagesWithoutUpstreamCall(t *testing.T) {
	app, calls := newAssistantApp(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp := postAssistant(t, app, conversation(51, "user"))
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Too many messages. Maximum 50 per request.", decodeBody(t, resp)["error"])
	require.Zero(t, calls.Load())
}

func TestAssistantRejectsUnknownRole(t *testing.T) {
	app, calls := newAssistantApp(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp := postAssistant(t, app, conversation(1, "system"))
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid message role. Must be 'user' or 'assistant'", decodeBody(t, resp)["error"])
	require.Zero(t, calls.Load())
}

func TestAssistantMapsUpstreamStatuses(t *testing.T) {
	cases := []struct {
		upstream int
		status   int
		message  string
	}{
		{upstream: http.StatusTooManyRequests, status: http.StatusTooManyRequests, message: "Rate limit exceeded. Please try again in a moment."},
		{upstream: http.StatusPaymentRequired, status: http.StatusPaymentRequired, message: "AI credits exhausted. Please add credits to continue."},
		{upstream: http.StatusBadRequest, status: http.StatusInternalServerError, message: "Failed to get AI response"},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.upstream), func(t *testing.T) {
			app, _ := newAssistantApp(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.upstream)
			})

			resp := postAssistant(t, app, conversation(1, "user"))
			defer resp.Body.Close()

			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.message, decodeBody(t, resp)["error"])
			require.Equal(t, "https://preview.lovable.app", resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestAssistantRelaysEventStream(t *testing.T) {
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: [DONE]\n\n"
	app, calls := newAssistantApp(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, stream)
	})

	resp := postAssistant(t, app, conversation(2, "user"))
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var text strings.Builder
	require.NoError(t, services.ReadStream(resp.Body, func(delta string) error {
		text.WriteString(delta)
		return nil
	}))
	require.Equal(t, "Hello", text.String())
	require.EqualValues(t, 1, calls.Load())
}

func TestAssistantPreflight(t *testing.T) {
	app, calls := newAssistantApp(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodOptions, assistantPath, nil)
	req.Header.Set("Origin", "https://unknown.example")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://acadbuddy.app", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Zero(t, calls.Load())
}
