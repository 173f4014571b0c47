//revive:disable-next-line:var-naming // legacy package name used across the project
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/eelab/labdesk/internal/domain/auth"
)

const maxUserIDLen = 255

// RoleAssignment overrides the role derived from IdP groups for one user.
type RoleAssignment struct {
	UserID     string    `json:"user_id"`
	Role       auth.Role `json:"role"`
	AssignedBy string    `json:"assigned_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AssignRoleRequest creates or replaces a role assignment.
type AssignRoleRequest struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	AssignedBy string `json:"-"`
	// Replace allows overwriting an existing assignment; otherwise a duplicate is a conflict.
	Replace bool `json:"replace"`
}

// Validate normalizes and checks the request, returning the parsed role.
func (r *AssignRoleRequest) Validate() (auth.Role, error) {
	r.UserID = strings.TrimSpace(r.UserID)
	if r.UserID == "" {
		return auth.RoleUnknown, errors.New("user_id is required and cannot be empty")
	}
	if utf8.RuneCountInString(r.UserID) > maxUserIDLen {
		return auth.RoleUnknown, errors.New("user_id cannot exceed 255 characters")
	}
	role, err := auth.ParseRole(r.Role)
	if err != nil {
		return auth.RoleUnknown, errors.New("role must be one of admin, head_of_department, lecturer, student")
	}
	return role, nil
}
