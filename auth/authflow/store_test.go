package authflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_PutTake(t *testing.T) {
	s := NewStore(15 * time.Minute)
	defer s.Stop()

	s.Put(PendingFlow{State: "state-1", RedirectURI: "http://localhost:3000"})

	flow, ok := s.Take("state-1")
	require.True(t, ok)
	require.Equal(t, "state-1", flow.State)
	require.Equal(t, "http://localhost:3000", flow.RedirectURI)
	require.False(t, flow.CreatedAt.IsZero())

	// States are single-use.
	_, ok = s.Take("state-1")
	require.False(t, ok)
}

func TestStore_TakeUnknownState(t *testing.T) {
	s := NewStore(15 * time.Minute)
	defer s.Stop()

	_, ok := s.Take("never-registered")
	require.False(t, ok)
}

func TestStore_TakeExpiredState(t *testing.T) {
	s := NewStore(15 * time.Minute)
	defer s.Stop()

	s.Put(PendingFlow{
		State:     "stale",
		CreatedAt: time.Now().Add(-time.Hour),
	})

	_, ok := s.Take("stale")
	require.False(t, ok)
	require.Zero(t, s.Len())
}

func TestStore_SweepRemovesOnlyExpired(t *testing.T) {
	s := NewStore(15 * time.Minute)
	defer s.Stop()

	now := time.Now()
	s.Put(PendingFlow{State: "fresh", CreatedAt: now.Add(-time.Minute)})
	s.Put(PendingFlow{State: "stale", CreatedAt: now.Add(-time.Hour)})

	s.sweep(now)

	require.Equal(t, 1, s.Len())
	_, ok := s.Take("fresh")
	require.True(t, ok)
}
