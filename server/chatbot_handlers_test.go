package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inboxpilot/inboxpilot/auth"
	"github.com/inboxpilot/inboxpilot/llm"
)

func chatRequest(sessionID, message string) *http.Request {
	payload := `{"message":` + jsonString(message) + `,"session_id":"` + sessionID + `"}`
	return httptest.NewRequest(http.MethodPost, "/api/chatbot/message", strings.NewReader(payload))
}

func jsonString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func TestChatMessageHandler(t *testing.T) {
	t.Run("invalid session is 401", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(chatRequest("nope", "show me my emails"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("read command returns summarised emails", func(t *testing.T) {
		env := newTestEnv(t)
		sessionID := env.addSession(t, time.Now().Add(time.Hour))
		env.gen.ParsedCommand = &llm.ParsedCommand{
			Action:     "read",
			Parameters: map[string]any{"max_results": float64(1)},
		}

		rec := env.do(chatRequest(sessionID, "show me my last email"))
		body := decodeJSON(t, rec, http.StatusOK)

		require.Equal(t, "read", body["action"])
		require.Contains(t, body["response"], "Here are your last 1 emails")
	})

	t.Run("unparseable command still answers", func(t *testing.T) {
		env := newTestEnv(t)
		sessionID := env.addSession(t, time.Now().Add(time.Hour))

		rec := env.do(chatRequest(sessionID, "fjdkslfjdsk"))
		body := decodeJSON(t, rec, http.StatusOK)

		require.Equal(t, "unknown", body["action"])
	})

	t.Run("delete with no target asks to disambiguate", func(t *testing.T) {
		env := newTestEnv(t)
		sessionID := env.addSession(t, time.Now().Add(time.Hour))
		env.gen.ParsedCommand = &llm.ParsedCommand{Action: "delete", Parameters: map[string]any{}}

		rec := env.do(chatRequest(sessionID, "delete an email"))
		body := decodeJSON(t, rec, http.StatusOK)

		require.Contains(t, body["response"], "Please specify which email to delete.")
		require.Empty(t, env.mailbox.Deleted)
	})
}

func TestGreetingHandler(t *testing.T) {
	t.Run("anonymous greeting without a session", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/chatbot/greeting", nil))
		body := decodeJSON(t, rec, http.StatusOK)

		require.Equal(t, anonymousGreeting, body["greeting"])
		require.Nil(t, body["user"])
	})

	t.Run("personalised greeting with a valid session", func(t *testing.T) {
		env := newTestEnv(t)
		sessionID := env.addSession(t, time.Now().Add(time.Hour))
		env.server.fetchUserInfo = func(context.Context, *auth.Credential) (*auth.UserInfo, error) {
			return &auth.UserInfo{Email: "me@example.com", Name: "Jordan", Picture: "http://p"}, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/api/chatbot/greeting", nil)
		req.Header.Set(SessionHeader, sessionID)

		rec := env.do(req)
		body := decodeJSON(t, rec, http.StatusOK)

		require.Contains(t, body["greeting"], "Hello Jordan!")
		user := body["user"].(map[string]any)
		require.Equal(t, "me@example.com", user["email"])
	})
}
