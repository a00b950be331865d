package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/inboxpilot/inboxpilot/auth"
	"github.com/inboxpilot/inboxpilot/sessions"
	"github.com/inboxpilot/inboxpilot/sessions/repofakes"
)

// fakeRefresher stands in for Google's token endpoint.
type fakeRefresher struct {
	token     *oauth2.Token
	err       error
	calls     int
	onRefresh func()
}

func (f *fakeRefresher) Refresh(_ context.Context, _ *oauth2.Token) (*oauth2.Token, error) {
	f.calls++
	if f.onRefresh != nil {
		f.onRefresh()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

func storedSession(t *testing.T, repo sessions.Repo, expiresAt time.Time, refreshToken string) *sessions.Session {
	t.Helper()

	session := &sessions.Session{
		SessionID:    sessions.NewSessionID(),
		UserEmail:    "john.doe@example.com",
		AccessToken:  "ya29.original",
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), session))
	return session
}

func TestResolve_UnknownSession(t *testing.T) {
	manager := auth.NewCredentialManager(repofakes.NewFakeSessionRepo(), &fakeRefresher{})

	_, err := manager.Resolve(context.Background(), "no-such-session")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestResolve_ValidTokenNeedsNoRefresh(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	refresher := &fakeRefresher{}
	manager := auth.NewCredentialManager(repo, refresher)

	session := storedSession(t, repo, time.Now().UTC().Add(time.Hour), "1//refresh")

	cred, err := manager.Resolve(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.Equal(t, "ya29.original", cred.AccessToken)
	require.Equal(t, "john.doe@example.com", cred.UserEmail)
	require.Zero(t, refresher.calls)
}

func TestResolve_TerminallyExpiredSessionIsDeleted(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	manager := auth.NewCredentialManager(repo, &fakeRefresher{})

	session := storedSession(t, repo, time.Now().UTC().Add(-time.Hour), "")

	_, err := manager.Resolve(context.Background(), session.SessionID)
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = repo.Get(context.Background(), session.SessionID)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestResolve_RefreshWritesBackTokenAndExpiry(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	newExpiry := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	refresher := &fakeRefresher{token: &oauth2.Token{
		AccessToken: "ya29.refreshed",
		Expiry:      newExpiry,
	}}
	manager := auth.NewCredentialManager(repo, refresher)

	session := storedSession(t, repo, time.Now().UTC().Add(-time.Minute), "1//refresh")

	cred, err := manager.Resolve(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.Equal(t, "ya29.refreshed", cred.AccessToken)
	require.True(t, newExpiry.Equal(cred.Expiry))

	stored, err := repo.Get(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.Equal(t, "ya29.refreshed", stored.AccessToken)
	require.True(t, newExpiry.Equal(stored.ExpiresAt))

	// Google omitted a rotated refresh token; the old one must survive.
	require.Equal(t, "1//refresh", stored.RefreshToken)
}

func TestResolve_RefreshAdoptsRotatedRefreshToken(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	refresher := &fakeRefresher{token: &oauth2.Token{
		AccessToken:  "ya29.refreshed",
		RefreshToken: "1//rotated",
		Expiry:       time.Now().UTC().Add(time.Hour),
	}}
	manager := auth.NewCredentialManager(repo, refresher)

	session := storedSession(t, repo, time.Now().UTC().Add(-time.Minute), "1//refresh")

	_, err := manager.Resolve(context.Background(), session.SessionID)
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.Equal(t, "1//rotated", stored.RefreshToken)
}

func TestResolve_NoNetworkRefreshWithinValidityWindow(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	refresher := &fakeRefresher{token: &oauth2.Token{
		AccessToken: "ya29.refreshed",
		Expiry:      time.Now().UTC().Add(time.Hour),
	}}
	manager := auth.NewCredentialManager(repo, refresher)

	session := storedSession(t, repo, time.Now().UTC().Add(-time.Minute), "1//refresh")

	first, err := manager.Resolve(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.Equal(t, 1, refresher.calls)

	second, err := manager.Resolve(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.Equal(t, 1, refresher.calls)
	require.Equal(t, first.AccessToken, second.AccessToken)
}

func TestResolve_RefreshFailure(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	refresher := &fakeRefresher{err: errors.New("invalid_grant")}
	manager := auth.NewCredentialManager(repo, refresher)

	session := storedSession(t, repo, time.Now().UTC().Add(-time.Minute), "1//revoked")

	_, err := manager.Resolve(context.Background(), session.SessionID)
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestResolve_ToleratesConcurrentRefresh(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	session := storedSession(t, repo, time.Now().UTC().Add(-time.Minute), "1//refresh")

	// Our own refresh attempt fails, but by then another request has
	// already refreshed the session; Resolve must pick up its result.
	refresher := &fakeRefresher{err: errors.New("transient network error")}
	refresher.onRefresh = func() {
		refreshed := *session
		refreshed.AccessToken = "ya29.by-concurrent-request"
		refreshed.ExpiresAt = time.Now().UTC().Add(time.Hour)
		require.NoError(t, repo.Update(context.Background(), &refreshed))
	}
	manager := auth.NewCredentialManager(repo, refresher)

	cred, err := manager.Resolve(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.Equal(t, "ya29.by-concurrent-request", cred.AccessToken)
}
