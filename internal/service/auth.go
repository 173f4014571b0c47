package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/ports"
)

// ErrNoRole is returned by CompleteLogin when neither an override, the group
// mapping, nor a default role yields a lab role for the user.
var ErrNoRole = errors.New("no lab role assigned")

// ErrSessionExpired is returned by GetSession for a stored session past its expiry.
// It matches ports.ErrSessionNotFound so callers can treat it as signed out.
var ErrSessionExpired = fmt.Errorf("session expired: %w", ports.ErrSessionNotFound)

// RoleResolution configures how a login is assigned a role.
// Precedence: Overrides (per-user assignment), then Mapper (IdP groups), then Default.
type RoleResolution struct {
	Mapper    ports.RoleMapper
	Overrides ports.RoleAssignmentRepository // optional
	Default   domainauth.Role                // RoleUnknown rejects unmapped users
}

// SessionOptions configures session persistence.
type SessionOptions struct {
	Store ports.SessionStore
	// TTL caps session lifetime; zero keeps the IdP token expiry.
	TTL time.Duration
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider
	Sessions SessionOptions
	Roles    RoleResolution
}

// AuthService orchestrates authentication flows by coordinating provider, role resolution, and session persistence.
type AuthService struct {
	provider ports.AuthProvider
	sessions ports.SessionStore
	ttl      time.Duration
	roles    RoleResolution
	lookups  singleflight.Group
	now      func() time.Time
}

// NewAuthService constructs a new AuthService. Provider, session store and mapper are required.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Provider == nil {
		panic("auth service: Provider is required")
	}
	if opts.Sessions.Store == nil {
		panic("auth service: Sessions.Store is required")
	}
	if opts.Roles.Mapper == nil {
		panic("auth service: Roles.Mapper is required")
	}
	return &AuthService{
		provider: opts.Provider,
		sessions: opts.Sessions.Store,
		ttl:      opts.Sessions.TTL,
		roles:    opts.Roles,
		now:      time.Now,
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider auth URL with state and nonce.
// loginHint is optional.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL, loginHint string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL, LoginHint: loginHint})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLogin exchanges the code for an identity, resolves the lab role and persists a session.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*domainauth.Session, error) {
	switch {
	case input.Code == "":
		return nil, errors.New("authorization code is required")
	case input.State == "":
		return nil, errors.New("state parameter is required")
	case input.Nonce == "":
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	role, err := s.resolveRole(ctx, identity)
	if err != nil {
		return nil, err
	}

	sess := domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    identity.UserID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		Role:      role,
		ExpiresAt: s.expiry(identity.ExpiresAt),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &sess, nil
}

func (s *AuthService) resolveRole(ctx context.Context, id domainauth.Identity) (domainauth.Role, error) {
	if s.roles.Overrides != nil {
		a, err := s.roles.Overrides.Get(ctx, id.UserID)
		switch {
		case err == nil && a.Role.Valid():
			return a.Role, nil
		case err != nil && !errors.Is(err, ports.ErrRoleAssignmentNotFound):
			return domainauth.RoleUnknown, fmt.Errorf("load role assignment: %w", err)
		}
	}
	if role, ok := s.roles.Mapper.Map(id.Groups); ok {
		return role, nil
	}
	if s.roles.Default.Valid() {
		return s.roles.Default, nil
	}
	return domainauth.RoleUnknown, fmt.Errorf("user %s: %w", id.UserID, ErrNoRole)
}

func (s *AuthService) expiry(idp time.Time) time.Time {
	if s.ttl <= 0 {
		return idp
	}
	capped := s.now().Add(s.ttl)
	if idp.IsZero() || capped.Before(idp) {
		return capped
	}
	return idp
}

// GetSession retrieves a session by ID. Concurrent lookups of the same ID share one store call.
// Missing and expired sessions return errors matching ports.ErrSessionNotFound; any other
// error means the store could not answer.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, ports.ErrSessionNotFound
	}

	v, err, _ := s.lookups.Do(sessionID, func() (any, error) {
		return s.sessions.Get(ctx, sessionID)
	})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess := v.(domainauth.Session)

	if sess.Expired(s.now()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(ErrSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, ErrSessionExpired
	}
	return &sess, nil
}

// Logout removes a session. An empty ID is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
