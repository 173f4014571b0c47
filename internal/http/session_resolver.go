package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/gate"
	"github.com/eelab/labdesk/internal/ports"
)

const (
	sessionCookieName = "session_id"

	// DefaultSessionLookupTimeout bounds one session store round trip before
	// the request is treated as still loading.
	DefaultSessionLookupTimeout = 750 * time.Millisecond
)

// Resolved is the authentication context of one request.
type Resolved struct {
	User *domainauth.UserInfo
	// Session is set only for cookie-backed logins.
	Session *domainauth.Session
	Loading bool
}

// GateSession projects r to the snapshot the gate evaluates.
func (r Resolved) GateSession() gate.Session {
	return gate.Session{User: r.User, Loading: r.Loading}
}

// decided reports whether r ends resolver chaining.
func (r Resolved) decided() bool { return r.User != nil || r.Loading }

// SessionResolver supplies the authentication context for a request.
type SessionResolver interface {
	Resolve(r *http.Request) Resolved
}

// SessionGetter looks up a persisted session by id.
type SessionGetter interface {
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
}

// SessionMetrics counts failed session lookups.
type SessionMetrics interface {
	SessionError(err error)
}

// CookieResolver resolves the session_id cookie through the auth service.
// A missing or expired session is unauthenticated; any other lookup failure,
// including a timeout, leaves the request loading.
type CookieResolver struct {
	Sessions SessionGetter
	Timeout  time.Duration
	Metrics  SessionMetrics
	Logger   *slog.Logger
}

func (c *CookieResolver) Resolve(r *http.Request) Resolved {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return Resolved{}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultSessionLookupTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	sess, err := c.Sessions.GetSession(ctx, cookie.Value)
	switch {
	case err == nil && sess != nil:
		return Resolved{User: sess.UserInfo(), Session: sess}
	case err == nil, errors.Is(err, ports.ErrSessionNotFound):
		return Resolved{}
	default:
		if c.Metrics != nil {
			c.Metrics.SessionError(err)
		}
		c.logger().WarnContext(r.Context(), "session lookup failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		return Resolved{Loading: true}
	}
}

func (c *CookieResolver) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*domainauth.UserInfo, error)
}

// BearerResolver resolves an "Authorization: Bearer <token>" header.
// Invalid tokens are unauthenticated.
type BearerResolver struct {
	Tokens TokenVerifier
	Logger *slog.Logger
}

func (b *BearerResolver) Resolve(r *http.Request) Resolved {
	token, ok := bearerToken(r)
	if !ok {
		return Resolved{}
	}
	u, err := b.Tokens.Verify(token)
	if err != nil {
		if b.Logger != nil {
			b.Logger.DebugContext(r.Context(), "bearer token rejected", slog.Any("error", err))
		}
		return Resolved{}
	}
	return Resolved{User: u}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ChainResolver tries each resolver in order; the first that yields a user or
// a loading state wins.
type ChainResolver []SessionResolver

func (c ChainResolver) Resolve(r *http.Request) Resolved {
	for _, res := range c {
		if res == nil {
			continue
		}
		if out := res.Resolve(r); out.decided() {
			return out
		}
	}
	return Resolved{}
}
