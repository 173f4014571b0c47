package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Role is one of the fixed lab application roles.
// The zero value RoleUnknown never grants access.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleHeadOfDepartment
	RoleLecturer
	RoleStudent
)

// ErrUnknownRole is returned when a string does not name a Role.
var ErrUnknownRole = errors.New("unknown role")

// AllRoles lists every valid role in display order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleHeadOfDepartment, RoleLecturer, RoleStudent}
}

// String returns the canonical persisted name of the role.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleHeadOfDepartment:
		return "head_of_department"
	case RoleLecturer:
		return "lecturer"
	case RoleStudent:
		return "student"
	case RoleUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Label returns a human-readable role name for templates.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleHeadOfDepartment:
		return "Head of Department"
	case RoleLecturer:
		return "Lecturer"
	case RoleStudent:
		return "Student"
	case RoleUnknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHeadOfDepartment, RoleLecturer, RoleStudent:
		return true
	case RoleUnknown:
		return false
	default:
		return false
	}
}

// ParseRole maps canonical names ("head_of_department") and display names
// ("HeadOfDepartment") to a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	switch key {
	case "admin":
		return RoleAdmin, nil
	case "headofdepartment", "hod":
		return RoleHeadOfDepartment, nil
	case "lecturer":
		return RoleLecturer, nil
	case "student":
		return RoleStudent, nil
	}
	return RoleUnknown, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// MarshalText encodes the canonical name. Unknown roles cannot be persisted.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name via ParseRole.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is an immutable set of roles.
type RoleSet struct {
	bits uint8
}

// NewRoleSet builds a set from roles. Invalid roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		if r.Valid() {
			s.bits |= 1 << r
		}
	}
	return s
}

// AnyRole is the set of every valid role.
func AnyRole() RoleSet { return NewRoleSet(AllRoles()...) }

// Contains reports whether r is in the set.
func (s RoleSet) Contains(r Role) bool {
	if !r.Valid() {
		return false
	}
	return s.bits&(1<<r) != 0
}

// Len returns the number of roles in the set.
func (s RoleSet) Len() int {
	n := 0
	for _, r := range AllRoles() {
		if s.Contains(r) {
			n++
		}
	}
	return n
}

// Roles returns the members in display order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, 4)
	for _, r := range AllRoles() {
		if s.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string {
	roles := s.Roles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return "[" + strings.Join(names, ",") + "]"
}
