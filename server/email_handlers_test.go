package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func authedRequest(t *testing.T, env *testEnv, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(SessionHeader, env.addSession(t, time.Now().Add(time.Hour)))
	return req
}

// decodeJSON asserts the status code and decodes the JSON body.
func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int) map[string]any {
	t.Helper()
	require.Equal(t, wantStatus, rec.Code, rec.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestListEmailsHandler(t *testing.T) {
	t.Run("lists with summaries", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(authedRequest(t, env, http.MethodGet, "/api/email/list?max_results=2", ""))
		body := decodeJSON(t, rec, http.StatusOK)

		emails := body["emails"].([]any)
		require.Len(t, emails, 2)

		first := emails[0].(map[string]any)
		require.Equal(t, "m1", first["id"])
		require.Equal(t, `summary of "Quarterly report"`, first["summary"])
		require.Equal(t, "alice@example.com", first["sender_email"])
	})

	t.Run("missing session header is 401", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/email/list", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown session is 401", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodGet, "/api/email/list", nil)
		req.Header.Set(SessionHeader, "nope")

		rec := env.do(req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("listing failure is a 500 with detail", func(t *testing.T) {
		env := newTestEnv(t)
		env.mailbox.ListErr = errors.New("quota exceeded")

		rec := env.do(authedRequest(t, env, http.MethodGet, "/api/email/list", ""))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "Gmail API error")
	})
}

func TestGenerateRepliesHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(authedRequest(t, env, http.MethodPost, "/api/email/reply/generate",
		`{"email_ids":["m1","missing"]}`))
	body := decodeJSON(t, rec, http.StatusOK)

	replies := body["replies"].([]any)
	require.Len(t, replies, 2)

	first := replies[0].(map[string]any)
	require.Equal(t, `drafted reply to "Quarterly report"`, first["reply"])

	second := replies[1].(map[string]any)
	require.Equal(t, "missing", second["email_id"])
	require.NotEmpty(t, second["error"])
}

func TestSendReplyHandler(t *testing.T) {
	t.Run("sends a threaded reply", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(authedRequest(t, env, http.MethodPost, "/api/email/reply/send",
			`{"email_id":"m2","reply_text":"Sounds good, see you Friday."}`))
		body := decodeJSON(t, rec, http.StatusOK)

		require.Equal(t, true, body["success"])
		require.NotEmpty(t, body["message_id"])
		require.Equal(t, []string{"m2"}, env.mailbox.SentIDs)
		require.Equal(t, []string{"Sounds good, see you Friday."}, env.mailbox.SentTexts)
	})

	t.Run("missing fields are 400", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(authedRequest(t, env, http.MethodPost, "/api/email/reply/send", `{"email_id":"m2"}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteEmailHandler(t *testing.T) {
	t.Run("deletes", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(authedRequest(t, env, http.MethodDelete, "/api/email/delete/m1", ""))
		body := decodeJSON(t, rec, http.StatusOK)

		require.Equal(t, true, body["success"])
		require.Equal(t, []string{"m1"}, env.mailbox.Deleted)
	})

	t.Run("unknown message is a 500 with detail", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(authedRequest(t, env, http.MethodDelete, "/api/email/delete/nope", ""))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "Failed to delete email")
	})
}

func TestSearchEmailsHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(authedRequest(t, env, http.MethodPost, "/api/email/search",
		`{"query":"from:bob@example.com","max_results":5}`))
	body := decodeJSON(t, rec, http.StatusOK)

	emails := body["emails"].([]any)
	require.Len(t, emails, 1)

	hit := emails[0].(map[string]any)
	require.Equal(t, "m2", hit["id"])
	require.Equal(t, "bob@example.com", hit["sender_email"])
	require.NotContains(t, hit, "body")
}

func TestDigestHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(authedRequest(t, env, http.MethodGet, "/api/email/digest", ""))
	body := decodeJSON(t, rec, http.StatusOK)

	require.Equal(t, "digest of 2 emails", body["digest"])

	categories := body["categories"].(map[string]any)
	require.Len(t, categories["Other"], 2)
}
