package authroles

import (
	"testing"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/stretchr/testify/assert"
)

func TestGroupRoleMapper_Map(t *testing.T) {
	m := GroupRoleMapper{
		AdminGroup:    "lab-admins",
		HoDGroup:      "lab-hods",
		LecturerGroup: "lab-lecturers",
		StudentGroup:  "lab-students",
	}

	tests := []struct {
		name   string
		groups []string
		want   domainauth.Role
		ok     bool
	}{
		{"no groups", nil, domainauth.RoleUnknown, false},
		{"unmapped group", []string{"staff"}, domainauth.RoleUnknown, false},
		{"student", []string{"lab-students"}, domainauth.RoleStudent, true},
		{"case insensitive", []string{"LAB-Lecturers"}, domainauth.RoleLecturer, true},
		{"highest wins", []string{"lab-students", "lab-hods", "lab-lecturers"}, domainauth.RoleHeadOfDepartment, true},
		{"admin beats all", []string{"lab-lecturers", "lab-admins"}, domainauth.RoleAdmin, true},
		{"role name not accepted by default", []string{"lecturer"}, domainauth.RoleUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Map(tt.groups)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestGroupRoleMapper_AcceptRoleNames(t *testing.T) {
	m := GroupRoleMapper{AdminGroup: "root", AcceptRoleNames: true}

	got, ok := m.Map([]string{"HeadOfDepartment"})
	assert.True(t, ok)
	assert.Equal(t, domainauth.RoleHeadOfDepartment, got)

	got, ok = m.Map([]string{"student", "root"})
	assert.True(t, ok)
	assert.Equal(t, domainauth.RoleAdmin, got)
}

func TestGroupRoleMapper_EmptyConfigMatchesNothing(t *testing.T) {
	_, ok := GroupRoleMapper{}.Map([]string{"", "lab-admins"})
	assert.False(t, ok)
}
