package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

// completionServer answers every chat completion with the given content.
func completionServer(t *testing.T, content string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.Header().Set("Content-Type", "application/json")
		response := map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  DefaultModel,
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
}

func TestSummarize(t *testing.T) {
	var captured map[string]any
	srv := completionServer(t, "  A short summary.  ", &captured)
	defer srv.Close()

	client := NewClient("test-key", srv.URL, "")
	summary, err := client.Summarize(context.Background(), EmailContext{
		Sender:  "Alice",
		Subject: "Quarterly report",
		Body:    "The numbers are in.",
	})

	require.NoError(t, err)
	require.Equal(t, "A short summary.", summary)
	require.Equal(t, DefaultModel, captured["model"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	require.Contains(t, user["content"], "Quarterly report")
}

func TestParseCommand(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		srv := completionServer(t, `{"action":"read","parameters":{"max_results":3}}`, nil)
		defer srv.Close()

		parsed, err := NewClient("k", srv.URL, "").ParseCommand(context.Background(), "show 3 emails")
		require.NoError(t, err)
		require.Equal(t, "read", parsed.Action)
		require.EqualValues(t, 3, parsed.Parameters["max_results"])
	})

	t.Run("fenced JSON is tolerated", func(t *testing.T) {
		srv := completionServer(t, "```json\n{\"action\":\"delete\",\"parameters\":{}}\n```", nil)
		defer srv.Close()

		parsed, err := NewClient("k", srv.URL, "").ParseCommand(context.Background(), "delete it")
		require.NoError(t, err)
		require.Equal(t, "delete", parsed.Action)
	})

	t.Run("malformed output is an error", func(t *testing.T) {
		srv := completionServer(t, "sorry, I can't help with that", nil)
		defer srv.Close()

		_, err := NewClient("k", srv.URL, "").ParseCommand(context.Background(), "do something")
		require.Error(t, err)
	})
}

func TestCategorize_DropsOutOfRangeIndexes(t *testing.T) {
	srv := completionServer(t, `{"Work":[1,7],"Other":[2]}`, nil)
	defer srv.Close()

	emails := []EmailContext{
		{Sender: "Alice", Subject: "Report"},
		{Sender: "Bob", Subject: "Lunch"},
	}
	categories, err := NewClient("k", srv.URL, "").Categorize(context.Background(), emails)
	require.NoError(t, err)
	require.Equal(t, []int{1}, categories["Work"])
	require.Equal(t, []int{2}, categories["Other"])
}

func TestStripCodeFence(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 5))
	require.Equal(t, "ab", truncate("abcdef", 2))

	// Cuts inside a multi-byte rune back up to the rune boundary.
	require.Equal(t, "a", truncate("aé", 2))
	require.True(t, utf8.ValidString(truncate("héllo wörld", 7)))
}
