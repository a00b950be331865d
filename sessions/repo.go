package sessions

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// Repo defines the interface for session persistence. Writes must be
// atomic: a Create, Update or Delete either fully lands or fully fails.
type Repo interface {
	// Create persists a new session. Fails with ErrSessionExists if the
	// session ID is already present.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by ID, or ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Update overwrites the full stored record. Callers read-modify-write
	// whole sessions; there are no partial-field patch semantics.
	// Fails with ErrSessionNotFound if the session ID is absent.
	Update(ctx context.Context, session *Session) error

	// Delete removes a session. Deleting an absent key is not an error.
	Delete(ctx context.Context, sessionID string) error

	// ListAll returns every stored session. Administrative use only,
	// never on the hot request path.
	ListAll(ctx context.Context) ([]*Session, error)

	// DeleteExpired removes sessions that expired before the given time
	// and hold no refresh token. Refreshable sessions are left alone so
	// a later resolve can still renew them.
	DeleteExpired(ctx context.Context, before time.Time) error
}
