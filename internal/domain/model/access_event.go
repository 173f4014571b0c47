//revive:disable-next-line:var-naming // legacy package name used across the project
package model

import (
	"time"

	"github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/gate"
)

// AccessEvent records a gate transition into a denial state.
type AccessEvent struct {
	ID         string     `json:"id"`
	Policy     string     `json:"policy"`
	State      gate.State `json:"-"`
	Path       string     `json:"path"`
	UserID     string     `json:"user_id,omitempty"`
	Role       auth.Role  `json:"-"`
	ClientID   string     `json:"client_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// StateName is the persisted form of State.
func (e AccessEvent) StateName() string { return e.State.String() }

// RoleName is the persisted form of Role; empty for anonymous sessions.
func (e AccessEvent) RoleName() string {
	if !e.Role.Valid() {
		return ""
	}
	return e.Role.String()
}

// AccessEventListOptions filters ListAccessEvents.
type AccessEventListOptions struct {
	Policy string
	UserID string
	Limit  int
	Offset int
}
