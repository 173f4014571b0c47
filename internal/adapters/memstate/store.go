// Package memstate is an in-process GateStateStore for single-replica and
// development deployments.
package memstate

import (
	"context"
	"sync"
	"time"

	"github.com/eelab/labdesk/internal/domain/gate"
	"github.com/eelab/labdesk/internal/ports"
)

var _ ports.GateStateStore = (*Store)(nil)

type clientStates struct {
	states    map[string]gate.State
	expiresAt time.Time
}

// Store keeps per-client gate states in memory with a sliding TTL.
// It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	clients map[string]*clientStates
	ttl     time.Duration
	now     func() time.Time
	// sweepEvery bounds how many Saves happen between expiry sweeps.
	sweepEvery int
	saves      int
}

// New creates a store whose entries expire ttl after their last write.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		clients:    make(map[string]*clientStates),
		ttl:        ttl,
		now:        time.Now,
		sweepEvery: 256,
	}
}

func (s *Store) Load(_ context.Context, key ports.GateStateKey) (gate.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.clients[key.ClientID]
	if !ok {
		return gate.StateUnknown, nil
	}
	if s.now().After(cs.expiresAt) {
		delete(s.clients, key.ClientID)
		return gate.StateUnknown, nil
	}
	return cs.states[key.Policy], nil
}

func (s *Store) Save(_ context.Context, key ports.GateStateKey, state gate.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cs, ok := s.clients[key.ClientID]
	if !ok || now.After(cs.expiresAt) {
		cs = &clientStates{states: make(map[string]gate.State, 1)}
		s.clients[key.ClientID] = cs
	}
	cs.states[key.Policy] = state
	cs.expiresAt = now.Add(s.ttl)

	s.saves++
	if s.saves >= s.sweepEvery {
		s.saves = 0
		s.sweepLocked(now)
	}
	return nil
}

func (s *Store) Clear(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, clientID)
	return nil
}

// Len returns the number of tracked clients, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Store) sweepLocked(now time.Time) {
	for id, cs := range s.clients {
		if now.After(cs.expiresAt) {
			delete(s.clients, id)
		}
	}
}
