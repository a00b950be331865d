package sqliterepo_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inboxpilot/inboxpilot/sessions"
	"github.com/inboxpilot/inboxpilot/sessions/sqliterepo"
)

func newTestRepo(t *testing.T) *sqliterepo.Repo {
	t.Helper()

	repo, err := sqliterepo.New(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testSession(id string) *sessions.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &sessions.Session{
		SessionID:    id,
		UserEmail:    "john.doe@example.com",
		AccessToken:  "ya29.access-token",
		RefreshToken: "1//refresh-token",
		ExpiresAt:    now.Add(time.Hour),
		CreatedAt:    now,
	}
}

func TestRepo_CreateGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := testSession(sessions.NewSessionID())
	require.NoError(t, repo.Create(ctx, created))

	got, err := repo.Get(ctx, created.SessionID)
	require.NoError(t, err)
	require.Equal(t, created.SessionID, got.SessionID)
	require.Equal(t, created.UserEmail, got.UserEmail)
	require.Equal(t, created.AccessToken, got.AccessToken)
	require.Equal(t, created.RefreshToken, got.RefreshToken)
	require.True(t, created.ExpiresAt.Equal(got.ExpiresAt))
	require.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestRepo_CreatePopulatesCreatedAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s := testSession(sessions.NewSessionID())
	s.CreatedAt = time.Time{}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.Get(ctx, s.SessionID)
	require.NoError(t, err)
	require.False(t, got.CreatedAt.IsZero())
}

func TestRepo_CreateDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s := testSession(sessions.NewSessionID())
	require.NoError(t, repo.Create(ctx, s))

	err := repo.Create(ctx, testSession(s.SessionID))
	require.ErrorIs(t, err, sessions.ErrSessionExists)
}

func TestRepo_GetNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestRepo_UpdateOverwritesFullRecord(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s := testSession(sessions.NewSessionID())
	require.NoError(t, repo.Create(ctx, s))

	s.AccessToken = "ya29.rotated"
	s.RefreshToken = "1//rotated"
	s.ExpiresAt = s.ExpiresAt.Add(30 * time.Minute)
	require.NoError(t, repo.Update(ctx, s))

	got, err := repo.Get(ctx, s.SessionID)
	require.NoError(t, err)
	require.Equal(t, "ya29.rotated", got.AccessToken)
	require.Equal(t, "1//rotated", got.RefreshToken)
	require.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
}

func TestRepo_UpdateNotFound(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Update(context.Background(), testSession("missing"))
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestRepo_DeleteIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s := testSession(sessions.NewSessionID())
	require.NoError(t, repo.Create(ctx, s))

	require.NoError(t, repo.Delete(ctx, s.SessionID))
	require.NoError(t, repo.Delete(ctx, s.SessionID))

	_, err := repo.Get(ctx, s.SessionID)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestRepo_ListAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testSession(sessions.NewSessionID())))
	require.NoError(t, repo.Create(ctx, testSession(sessions.NewSessionID())))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRepo_DeleteExpiredKeepsRefreshableSessions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	terminal := testSession(sessions.NewSessionID())
	terminal.RefreshToken = ""
	terminal.ExpiresAt = now.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, terminal))

	refreshable := testSession(sessions.NewSessionID())
	refreshable.ExpiresAt = now.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, refreshable))

	live := testSession(sessions.NewSessionID())
	live.RefreshToken = ""
	require.NoError(t, repo.Create(ctx, live))

	require.NoError(t, repo.DeleteExpired(ctx, now))

	_, err := repo.Get(ctx, terminal.SessionID)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)

	_, err = repo.Get(ctx, refreshable.SessionID)
	require.NoError(t, err)

	_, err = repo.Get(ctx, live.SessionID)
	require.NoError(t, err)
}

func TestNewSessionID_Entropy(t *testing.T) {
	a := sessions.NewSessionID()
	b := sessions.NewSessionID()

	// 32 bytes base64url-encoded without padding is 43 characters.
	require.Len(t, a, 43)
	require.NotEqual(t, a, b)
}
