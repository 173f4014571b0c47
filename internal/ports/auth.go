package ports

// Package ports defines interfaces (hexagonal ports) for auth and gate behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
	// LoginHint is an optional account hint forwarded to the IdP.
	LoginHint string
}

// AuthProvider initiates and completes an authentication flow against an IdP.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// SessionStore persists and retrieves user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper maps provider groups to an application role.
// ok is false when no group matches.
type RoleMapper interface {
	Map(groups []string) (role domainauth.Role, ok bool)
}

// TokenIssuer mints and verifies bearer tokens carrying a user's role.
type TokenIssuer interface {
	Issue(sess domainauth.Session) (token string, err error)
	Verify(token string) (*domainauth.UserInfo, error)
}

// ErrSessionNotFound is returned by SessionStore.Get when the session does not exist or has expired.
var ErrSessionNotFound = errors.New("session not found")
