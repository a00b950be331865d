package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

type chatMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ChatMessageHandler is the conversational endpoint. The only hard
// failure is an unusable session; everything past that point resolves
// to a 200 with a descriptive body.
func (s *Server) ChatMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		cred, err := s.creds.Resolve(r.Context(), req.SessionID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		intent := s.resolver.Resolve(r.Context(), req.Message)
		log.Info().Str("action", string(intent.Action)).Msg("chat command resolved")

		writeJSON(w, http.StatusOK, s.dispatcher.Handle(r.Context(), cred, intent))
	}
}

const anonymousGreeting = "Hello! I'm your AI email assistant. How can I help you today?"

// GreetingHandler returns the opening chat message, personalised with
// the user's profile when the session is usable.
func (s *Server) GreetingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		anonymous := map[string]any{"greeting": anonymousGreeting, "user": nil}

		cred, err := s.creds.Resolve(r.Context(), r.Header.Get(SessionHeader))
		if err != nil {
			writeJSON(w, http.StatusOK, anonymous)
			return
		}

		info, err := s.fetchUserInfo(r.Context(), cred)
		if err != nil {
			log.Error().Err(err).Msg("fetching user info failed")
			writeJSON(w, http.StatusOK, anonymous)
			return
		}

		name := info.Name
		if name == "" {
			name = "there"
		}
		greeting := fmt.Sprintf("Hello %s! 👋\n\n", name) +
			"I'm your AI email assistant. I can help you:\n" +
			"• Read your recent emails with AI summaries\n" +
			"• Generate professional email replies\n" +
			"• Delete specific emails\n\n" +
			"Just tell me what you'd like to do in natural language!"

		writeJSON(w, http.StatusOK, map[string]any{
			"greeting": greeting,
			"user": map[string]string{
				"email":   info.Email,
				"name":    info.Name,
				"picture": info.Picture,
			},
		})
	}
}
