package authroles

import (
	"strings"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/ports"
)

var _ ports.RoleMapper = GroupRoleMapper{}

// GroupRoleMapper maps IdP groups to a lab role. When a user is in several
// mapped groups the highest role wins (Admin, then HeadOfDepartment, Lecturer, Student).
// Group names compare case-insensitively. A group spelled as a role name
// ("lecturer", "HeadOfDepartment") is accepted when AcceptRoleNames is set.
type GroupRoleMapper struct {
	AdminGroup      string
	HoDGroup        string
	LecturerGroup   string
	StudentGroup    string
	AcceptRoleNames bool
}

// Map returns the highest role matched by groups.
func (m GroupRoleMapper) Map(groups []string) (domainauth.Role, bool) {
	best := domainauth.RoleUnknown
	for _, g := range groups {
		r := m.match(strings.TrimSpace(g))
		if r.Valid() && (!best.Valid() || rank(r) < rank(best)) {
			best = r
		}
	}
	return best, best.Valid()
}

func (m GroupRoleMapper) match(group string) domainauth.Role {
	if group == "" {
		return domainauth.RoleUnknown
	}
	for _, r := range domainauth.AllRoles() {
		if name := m.groupFor(r); name != "" && strings.EqualFold(group, name) {
			return r
		}
	}
	if m.AcceptRoleNames {
		if r, err := domainauth.ParseRole(group); err == nil {
			return r
		}
	}
	return domainauth.RoleUnknown
}

func (m GroupRoleMapper) groupFor(r domainauth.Role) string {
	switch r {
	case domainauth.RoleAdmin:
		return m.AdminGroup
	case domainauth.RoleHeadOfDepartment:
		return m.HoDGroup
	case domainauth.RoleLecturer:
		return m.LecturerGroup
	case domainauth.RoleStudent:
		return m.StudentGroup
	case domainauth.RoleUnknown:
		return ""
	default:
		return ""
	}
}

// rank orders roles by privilege; lower is higher.
func rank(r domainauth.Role) int {
	switch r {
	case domainauth.RoleAdmin:
		return 0
	case domainauth.RoleHeadOfDepartment:
		return 1
	case domainauth.RoleLecturer:
		return 2
	case domainauth.RoleStudent:
		return 3
	case domainauth.RoleUnknown:
		return 99
	default:
		return 99
	}
}
