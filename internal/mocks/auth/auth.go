// Package auth contains simple hand-written test doubles for auth and gate ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/gate"
	"github.com/eelab/labdesk/internal/domain/model"
	"github.com/eelab/labdesk/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider   = (*MockAuthProvider)(nil)
	_ ports.SessionStore   = (*MemorySessionStore)(nil)
	_ ports.RoleMapper     = StaticRoleMapper{}
	_ ports.GateStateStore = (*MemoryGateStateStore)(nil)
	_ ports.AccessRecorder = (*AccessRecorder)(nil)
)

// ErrNotFound is returned by the session double for unknown ids. It matches ports.ErrSessionNotFound.
var ErrNotFound = ports.ErrSessionNotFound

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL     string
	StatePrefix string
	NoncePrefix string
	DefaultUser domainauth.Identity

	// LastBegin records the most recent Begin input.
	LastBegin ports.BeginInput

	mu        sync.Mutex
	callCount int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL:     "https://mock-idp/auth",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		DefaultUser: defaultIdentity(),
	}
}

func defaultIdentity() domainauth.Identity {
	return domainauth.Identity{
		UserID:    "mock-user-1",
		FirstName: "Mock",
		LastName:  "User",
		Email:     "mock.user@example.com",
		Groups:    []string{"lab-students"},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	m.mu.Lock()
	m.LastBegin = in
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}
	return authURL, fmt.Sprintf("%s-%d", statePrefix, n), fmt.Sprintf("%s-%d", noncePrefix, n), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	user := m.DefaultUser
	if user.UserID == "" {
		user = defaultIdentity()
	}
	user.Groups = append([]string(nil), user.Groups...)
	user.ExpiresAt = time.Now().Add(time.Hour)
	return user, nil
}

// MemorySessionStore is an in-memory session store for unit tests.
// GetFunc, when set, replaces Get so tests can inject outages or latency.
type MemorySessionStore struct {
	GetFunc func(ctx context.Context, id string) (domainauth.Session, error)

	mu       sync.Mutex
	sessions map[string]domainauth.Session
	gets     int
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	m.gets++
	fn := m.GetFunc
	sess, ok := m.sessions[id]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, id)
	}
	if id == "" || !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Has reports whether id is stored.
func (m *MemorySessionStore) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// Gets returns the number of Get calls.
func (m *MemorySessionStore) Gets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// StaticRoleMapper maps exact group names to roles. The first group that matches wins.
type StaticRoleMapper struct {
	Groups map[string]domainauth.Role
}

func (m StaticRoleMapper) Map(groups []string) (domainauth.Role, bool) {
	for _, g := range groups {
		if r, ok := m.Groups[g]; ok && r.Valid() {
			return r, true
		}
	}
	return domainauth.RoleUnknown, false
}

// MemoryGateStateStore keeps previous gate states in a map.
// LoadErr and SaveErr, when set, are returned instead of touching the map.
type MemoryGateStateStore struct {
	LoadErr error
	SaveErr error

	mu     sync.Mutex
	states map[ports.GateStateKey]gate.State
}

// NewMemoryGateStateStore creates an empty store.
func NewMemoryGateStateStore() *MemoryGateStateStore {
	return &MemoryGateStateStore{states: make(map[ports.GateStateKey]gate.State)}
}

func (m *MemoryGateStateStore) Load(_ context.Context, key ports.GateStateKey) (gate.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return gate.StateUnknown, m.LoadErr
	}
	return m.states[key], nil
}

func (m *MemoryGateStateStore) Save(_ context.Context, key ports.GateStateKey, state gate.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.states == nil {
		m.states = make(map[ports.GateStateKey]gate.State)
	}
	m.states[key] = state
	return nil
}

func (m *MemoryGateStateStore) Clear(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.states {
		if k.ClientID == clientID {
			delete(m.states, k)
		}
	}
	return nil
}

// AccessRecorder collects recorded events.
type AccessRecorder struct {
	mu     sync.Mutex
	events []model.AccessEvent
}

func (r *AccessRecorder) Record(ev model.AccessEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *AccessRecorder) Events() []model.AccessEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AccessEvent(nil), r.events...)
}
