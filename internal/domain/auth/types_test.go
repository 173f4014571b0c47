package auth

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole_RoundTrip(t *testing.T) {
	for _, r := range AllRoles() {
		parsed, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
}

func TestParseRole_DisplayNames(t *testing.T) {
	cases := map[string]Role{
		"Admin":              RoleAdmin,
		"HeadOfDepartment":   RoleHeadOfDepartment,
		"head-of-department": RoleHeadOfDepartment,
		"LECTURER":           RoleLecturer,
		" Student ":          RoleStudent,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseRole_RejectsTypos(t *testing.T) {
	for _, in := range []string{"", "admn", "dean", "unknown", "role(9)"} {
		r, err := ParseRole(in)
		assert.True(t, errors.Is(err, ErrUnknownRole), in)
		assert.Equal(t, RoleUnknown, r)
	}
}

func TestRole_Valid(t *testing.T) {
	assert.False(t, RoleUnknown.Valid())
	assert.False(t, Role(42).Valid())
	for _, r := range AllRoles() {
		assert.True(t, r.Valid())
	}
}

func TestRole_JSON(t *testing.T) {
	s := Session{ID: "s1", UserID: "u1", Role: RoleHeadOfDepartment}
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"role":"head_of_department"`)

	var back Session
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, RoleHeadOfDepartment, back.Role)

	_, err = json.Marshal(Session{Role: RoleUnknown})
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"role":"superuser"}`), &back)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRoleSet(t *testing.T) {
	empty := NewRoleSet()
	for _, r := range AllRoles() {
		assert.False(t, empty.Contains(r))
	}
	assert.Equal(t, 0, empty.Len())

	s := NewRoleSet(RoleAdmin, RoleStudent, RoleUnknown, RoleAdmin)
	assert.True(t, s.Contains(RoleAdmin))
	assert.True(t, s.Contains(RoleStudent))
	assert.False(t, s.Contains(RoleLecturer))
	assert.False(t, s.Contains(RoleUnknown))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []Role{RoleAdmin, RoleStudent}, s.Roles())
	assert.Equal(t, "[admin,student]", s.String())

	assert.Equal(t, 4, AnyRole().Len())
}

func TestSession_UserInfo(t *testing.T) {
	s := Session{UserID: "jdoe", FirstName: "Jane", LastName: "Doe", Email: "j@example.com", Role: RoleLecturer}
	u := s.UserInfo()
	assert.Equal(t, "jdoe", u.ID)
	assert.Equal(t, "Jane Doe", u.Name)
	assert.Equal(t, RoleLecturer, u.Role)

	assert.Equal(t, "jdoe", Session{UserID: "jdoe"}.DisplayName())
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, Session{}.Expired(now))
	assert.False(t, Session{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, Session{ExpiresAt: now.Add(-time.Minute)}.Expired(now))
}
