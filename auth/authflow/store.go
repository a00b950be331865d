// Package authflow tracks in-flight OAuth authorization flows between the
// redirect to Google and the callback. Entries are keyed by the opaque
// state parameter and expire on a short TTL, so an abandoned login never
// leaks an entry.
package authflow

import (
	"sync"
	"time"
)

// PendingFlow is one in-flight OAuth authorization attempt.
type PendingFlow struct {
	State       string
	RedirectURI string
	CreatedAt   time.Time
}

// Store is a thread-safe expiring registry of pending flows. A janitor
// goroutine sweeps out entries older than the TTL until Stop is called.
type Store struct {
	mu    sync.Mutex
	flows map[string]PendingFlow
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

const sweepInterval = time.Minute

// NewStore creates a pending-flow store whose entries expire after ttl.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		flows: make(map[string]PendingFlow),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Put registers a pending flow under its state token.
func (s *Store) Put(flow PendingFlow) {
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[flow.State] = flow
}

// Take removes and returns the pending flow for a state token. Expired
// or unknown states return false; the state is single-use either way.
func (s *Store) Take(state string) (PendingFlow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.flows[state]
	if !ok {
		return PendingFlow{}, false
	}
	delete(s.flows, state)

	if time.Since(flow.CreatedAt) > s.ttl {
		return PendingFlow{}, false
	}
	return flow, true
}

// Len returns the number of tracked flows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

// Stop terminates the janitor goroutine. Safe to call more than once.
func (s *Store) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) janitor() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for state, flow := range s.flows {
		if now.Sub(flow.CreatedAt) > s.ttl {
			delete(s.flows, state)
		}
	}
}
