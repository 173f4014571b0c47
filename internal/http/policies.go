package httpx

import (
	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/gate"
)

// Policies are the role policies guarding each protected region.
type Policies struct {
	Dashboard  gate.Policy
	Admin      gate.Policy
	Department gate.Policy
	Lecturer   gate.Policy
	Student    gate.Policy
	API        gate.Policy
}

// DefaultPolicies builds the standard policies. Empty routes fall back to the
// gate defaults. The dashboard itself falls back to the entry route so a
// denied dashboard never redirects to itself.
func DefaultPolicies(entry, fallback string) Policies {
	all := domainauth.AllRoles()
	return Policies{
		Dashboard:  gate.NewPolicy("dashboard", all...).WithRoutes(entry, entryOrDefault(entry)),
		Admin:      gate.NewPolicy("admin", domainauth.RoleAdmin).WithRoutes(entry, fallback),
		Department: gate.NewPolicy("department", domainauth.RoleAdmin, domainauth.RoleHeadOfDepartment).WithRoutes(entry, fallback),
		Lecturer:   gate.NewPolicy("lecturer", domainauth.RoleHeadOfDepartment, domainauth.RoleLecturer).WithRoutes(entry, fallback),
		Student:    gate.NewPolicy("student", domainauth.RoleStudent).WithRoutes(entry, fallback),
		API:        gate.NewPolicy("api", all...).WithRoutes(entry, fallback),
	}
}

func entryOrDefault(entry string) string {
	if entry == "" {
		return gate.DefaultEntryRoute
	}
	return entry
}

// NavItem is one link in the primary navigation.
type NavItem struct {
	Label string
	Href  string
	Page  string
}

// Nav lists the regions role may enter, derived from the same policies that guard them.
func (p Policies) Nav(role domainauth.Role) []NavItem {
	candidates := []struct {
		item   NavItem
		policy gate.Policy
	}{
		{NavItem{Label: "Dashboard", Href: "/dashboard", Page: PageDashboard}, p.Dashboard},
		{NavItem{Label: "Department", Href: "/department", Page: PageDepartment}, p.Department},
		{NavItem{Label: "Teaching", Href: "/lecturer", Page: PageLecturer}, p.Lecturer},
		{NavItem{Label: "My lab", Href: "/student", Page: PageStudent}, p.Student},
		{NavItem{Label: "Administration", Href: "/admin/", Page: PageAdmin}, p.Admin},
	}
	var out []NavItem
	for _, c := range candidates {
		if c.policy.Allowed.Contains(role) {
			out = append(out, c.item)
		}
	}
	return out
}

// RoleHome returns the landing route for role.
func RoleHome(role domainauth.Role) string {
	switch role {
	case domainauth.RoleAdmin:
		return "/admin/"
	case domainauth.RoleHeadOfDepartment:
		return "/department"
	case domainauth.RoleLecturer:
		return "/lecturer"
	case domainauth.RoleStudent:
		return "/student"
	case domainauth.RoleUnknown:
		return "/dashboard"
	default:
		return "/dashboard"
	}
}
