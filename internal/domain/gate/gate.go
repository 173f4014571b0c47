// Package gate decides whether a session may see a role-protected region.
//
// Evaluate is the pure decision. Machine adds previous-state tracking so a
// denial notice is produced once per transition, and Guard binds a Machine to
// navigation and notification capabilities. The package performs no I/O.
package gate

import (
	"fmt"

	"github.com/eelab/labdesk/internal/domain/auth"
)

// Default routes used when a Policy leaves them empty.
const (
	DefaultEntryRoute    = "/"
	DefaultFallbackRoute = "/dashboard"
)

// Notice messages emitted on transitions into a denial state.
const (
	MessageSignInRequired = "You must sign in to view this page."
	MessageNotAuthorized  = "You are not authorized to view this page."
)

// State is the outcome category of a gate evaluation.
type State uint8

const (
	// StateUnknown means nothing has been observed yet.
	StateUnknown State = iota
	StateLoading
	StateUnauthenticated
	StateUnauthorized
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateUnauthorized:
		return "unauthorized"
	case StateAuthorized:
		return "authorized"
	case StateUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Denied reports whether s redirects away from the protected region.
func (s State) Denied() bool {
	switch s {
	case StateUnauthenticated, StateUnauthorized:
		return true
	case StateUnknown, StateLoading, StateAuthorized:
		return false
	default:
		return false
	}
}

// ParseState is the inverse of State.String. Unrecognized input yields StateUnknown.
func ParseState(s string) State {
	switch s {
	case "loading":
		return StateLoading
	case "unauthenticated":
		return StateUnauthenticated
	case "unauthorized":
		return StateUnauthorized
	case "authorized":
		return StateAuthorized
	default:
		return StateUnknown
	}
}

// Session is the authentication context snapshot the gate reads.
// User is nil until authentication resolves; Loading is true while it is unresolved.
type Session struct {
	User    *auth.UserInfo
	Loading bool
}

// Policy declares who may enter a protected region and where denied sessions go.
type Policy struct {
	Name          string
	Allowed       auth.RoleSet
	EntryRoute    string
	FallbackRoute string
}

// NewPolicy returns a policy with default routes.
func NewPolicy(name string, roles ...auth.Role) Policy {
	return Policy{
		Name:          name,
		Allowed:       auth.NewRoleSet(roles...),
		EntryRoute:    DefaultEntryRoute,
		FallbackRoute: DefaultFallbackRoute,
	}
}

// WithRoutes returns a copy of p using the given routes; empty arguments keep the current value.
func (p Policy) WithRoutes(entry, fallback string) Policy {
	if entry != "" {
		p.EntryRoute = entry
	}
	if fallback != "" {
		p.FallbackRoute = fallback
	}
	return p
}

func (p Policy) entryRoute() string {
	if p.EntryRoute == "" {
		return DefaultEntryRoute
	}
	return p.EntryRoute
}

func (p Policy) fallbackRoute() string {
	if p.FallbackRoute == "" {
		return DefaultFallbackRoute
	}
	return p.FallbackRoute
}

// Severity classifies a notice for display.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

// Notice is a user-facing message produced by the gate.
type Notice struct {
	Message  string
	Severity Severity
}

// Evaluate classifies sess against allowed. Precedence: loading, missing user,
// role mismatch, authorized.
func Evaluate(sess Session, allowed auth.RoleSet) State {
	switch {
	case sess.Loading:
		return StateLoading
	case sess.User == nil:
		return StateUnauthenticated
	case !allowed.Contains(sess.User.Role):
		return StateUnauthorized
	default:
		return StateAuthorized
	}
}
