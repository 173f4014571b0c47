package httpx

import (
	"context"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
)

// userKey is an unexported context key type to avoid collisions across packages.
type userKey struct{}

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// SetUserInContext returns a child context that carries the authorized user.
// If u is nil, the original ctx is returned unchanged.
func SetUserInContext(ctx context.Context, u *domainauth.UserInfo) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user placed by the gate, if any.
func UserFromContext(ctx context.Context) (*domainauth.UserInfo, bool) {
	u, ok := ctx.Value(userKey{}).(*domainauth.UserInfo)
	return u, ok && u != nil
}

// SetSessionInContext returns a child context that carries the provided session.
// If s is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, s *domainauth.Session) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, s)
}

// GetSessionFromContext retrieves the cookie-backed session, if present.
// Requests authenticated by bearer token carry a user but no session.
func GetSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*domainauth.Session)
	return s, ok && s != nil
}
