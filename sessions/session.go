package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Session maps an opaque, unguessable session ID to a user's delegated
// Google credential. The access token is short-lived; the refresh token
// (when Google issued one) lets the credential manager renew it silently.
// ExpiresAt always tracks the expiry of the currently stored access token.
type Session struct {
	SessionID    string    `db:"session_id" json:"session_id"`
	UserEmail    string    `db:"user_email" json:"user_email"`
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NewSessionID returns a URL-safe random session identifier carrying
// 256 bits of entropy from crypto/rand.
func NewSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("sessions: crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Expired reports whether the stored access token has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// Refreshable reports whether the session can be silently renewed once
// its access token expires. A session without a refresh token is
// terminally expired the moment its access token lapses.
func (s *Session) Refreshable() bool {
	return s.RefreshToken != ""
}
