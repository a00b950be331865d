package repofakes

import (
	"context"
	"sync"
	"time"

	"github.com/inboxpilot/inboxpilot/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is a thread-safe in-memory sessions.Repo for tests.
type FakeSessionRepo struct {
	lock     sync.RWMutex
	sessions map[string]sessions.Session
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]sessions.Session),
	}
}

func (r *FakeSessionRepo) Create(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.sessions[session.SessionID]; ok {
		return sessions.ErrSessionExists
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	r.sessions[session.SessionID] = *session
	return nil
}

func (r *FakeSessionRepo) Get(_ context.Context, sessionID string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	copied := session
	return &copied, nil
}

func (r *FakeSessionRepo) Update(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.sessions[session.SessionID]; !ok {
		return sessions.ErrSessionNotFound
	}
	r.sessions[session.SessionID] = *session
	return nil
}

func (r *FakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

func (r *FakeSessionRepo) ListAll(_ context.Context) ([]*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	result := make([]*sessions.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		copied := session
		result = append(result, &copied)
	}
	return result, nil
}

func (r *FakeSessionRepo) DeleteExpired(_ context.Context, before time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for id, session := range r.sessions {
		if session.RefreshToken == "" && session.ExpiresAt.Before(before) {
			delete(r.sessions, id)
		}
	}
	return nil
}
