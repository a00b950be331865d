package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inboxpilot/inboxpilot/sessions"
)

// GoogleAuthHandler starts the OAuth flow and hands the authorization
// URL back to the frontend, which performs the actual redirect.
func (s *Server) GoogleAuthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, state := s.auth.BeginFlow()
		writeJSON(w, http.StatusOK, map[string]string{
			"authorization_url": authURL,
			"state":             state,
		})
	}
}

// AuthCallbackHandler completes the OAuth flow and redirects the browser
// back to the frontend: to the dashboard with a session ID on success,
// to the login page with an error message otherwise.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		if code == "" {
			s.redirectLoginError(w, r, "Authentication failed: no authorization code received. Please try again.")
			return
		}

		session, err := s.auth.CompleteFlow(r.Context(), state, code)
		if err != nil {
			log.Error().Err(err).Msg("oauth callback failed")
			if strings.Contains(strings.ToLower(err.Error()), "invalid_grant") {
				s.redirectLoginError(w, r, "Authorization code expired or already used. Please try signing in again.")
				return
			}
			detail := err.Error()
			if len(detail) > 100 {
				detail = detail[:100]
			}
			s.redirectLoginError(w, r, "Authentication failed: "+detail+". Please try again.")
			return
		}

		http.Redirect(w, r, s.config.FrontendURL+"/dashboard?session="+session.SessionID, http.StatusFound)
	}
}

func (s *Server) redirectLoginError(w http.ResponseWriter, r *http.Request, message string) {
	target := s.config.FrontendURL + "/login?error=auth_failed&message=" + url.QueryEscape(message)
	http.Redirect(w, r, target, http.StatusFound)
}

// SessionInfoHandler reports whether a session is usable. Expired
// sessions that can still be refreshed are refreshed here rather than
// rejected, so the stored expiry the frontend sees is always current.
func (s *Server) SessionInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionID")

		if _, err := s.repo.Get(r.Context(), sessionID); err != nil {
			if errors.Is(err, sessions.ErrSessionNotFound) {
				writeError(w, http.StatusNotFound, "Session not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		if _, err := s.creds.Resolve(r.Context(), sessionID); err != nil {
			writeError(w, http.StatusUnauthorized, "Session expired")
			return
		}

		session, err := s.repo.Get(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Session expired")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"session_id": session.SessionID,
			"user_email": session.UserEmail,
			"expires_at": session.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

// UserInfoHandler returns the Google profile of the session's user.
func (s *Server) UserInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionID")

		if _, err := s.repo.Get(r.Context(), sessionID); err != nil {
			if errors.Is(err, sessions.ErrSessionNotFound) {
				writeError(w, http.StatusNotFound, "Session not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		cred, err := s.creds.Resolve(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Session expired")
			return
		}

		info, err := s.fetchUserInfo(r.Context(), cred)
		if err != nil {
			log.Error().Err(err).Msg("fetching user info failed")
			writeError(w, http.StatusUnauthorized, "Failed to get user info: "+err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"email":   info.Email,
			"name":    info.Name,
			"picture": info.Picture,
		})
	}
}
