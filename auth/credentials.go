package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/inboxpilot/inboxpilot/sessions"
)

// Credential is a resolved, non-expired delegated credential. It is
// bound to the access token that was valid at resolution time; it is
// never cached across requests.
type Credential struct {
	AccessToken string
	Expiry      time.Time
	UserEmail   string
}

// HTTPClient returns an HTTP client that sends the resolved bearer
// token on every request.
func (c *Credential) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: c.AccessToken,
		Expiry:      c.Expiry,
	}))
}

// TokenRefresher exchanges an expired token (carrying a refresh token)
// for a fresh one at the identity provider's token endpoint.
type TokenRefresher interface {
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// OAuthRefresher refreshes tokens through a standard oauth2.Config.
type OAuthRefresher struct {
	Config *oauth2.Config
}

func (r OAuthRefresher) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	return r.Config.TokenSource(ctx, token).Token()
}

// CredentialManager turns a session ID into a usable credential,
// silently refreshing the access token when it has expired. Centralising
// refresh here keeps the session's stored expiry and the credential's
// real expiry from ever diverging; no endpoint carries its own expiry
// logic.
type CredentialManager struct {
	repo      sessions.Repo
	refresher TokenRefresher
}

func NewCredentialManager(repo sessions.Repo, refresher TokenRefresher) *CredentialManager {
	return &CredentialManager{repo: repo, refresher: refresher}
}

// Resolve fetches the session, refreshes its access token if needed, and
// returns a credential bound to the valid token. Every failure mode maps
// to ErrUnauthorized so the caller degrades to "re-authenticate".
func (m *CredentialManager) Resolve(ctx context.Context, sessionID string) (*Credential, error) {
	session, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	now := time.Now().UTC()
	if !session.Expired(now) {
		return credentialFor(session), nil
	}

	if !session.Refreshable() {
		// Terminally expired: without a refresh token the session can
		// never be renewed, so drop the record.
		if err := m.repo.Delete(ctx, sessionID); err != nil {
			log.Warn().Err(err).Msg("failed to delete terminally expired session")
		}
		return nil, ErrUnauthorized
	}

	cred, err := m.refresh(ctx, session)
	if err == nil {
		return cred, nil
	}
	log.Warn().Err(err).Str("user", session.UserEmail).Msg("access token refresh failed")

	// A concurrent request against the same session may have refreshed
	// it already; re-read before giving up.
	latest, gerr := m.repo.Get(ctx, sessionID)
	if gerr == nil && !latest.Expired(time.Now().UTC()) {
		return credentialFor(latest), nil
	}

	return nil, ErrUnauthorized
}

// refresh exchanges the refresh token and writes the renewed token and
// expiry back through the store in a single full-record update.
func (m *CredentialManager) refresh(ctx context.Context, session *sessions.Session) (*Credential, error) {
	expired := &oauth2.Token{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		Expiry:       session.ExpiresAt,
	}

	token, err := m.refresher.Refresh(ctx, expired)
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	session.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		// Google only rotates the refresh token sometimes; overwriting a
		// valid one with "" would lock the session out of every future
		// refresh.
		session.RefreshToken = token.RefreshToken
	}
	session.ExpiresAt = token.Expiry.UTC()

	if err := m.repo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting refreshed token: %w", err)
	}

	return credentialFor(session), nil
}

func credentialFor(session *sessions.Session) *Credential {
	return &Credential{
		AccessToken: session.AccessToken,
		Expiry:      session.ExpiresAt,
		UserEmail:   session.UserEmail,
	}
}
