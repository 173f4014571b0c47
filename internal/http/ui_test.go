package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/gate"
	"github.com/eelab/labdesk/internal/domain/model"
	"github.com/eelab/labdesk/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI(t *testing.T, roles *fakeRoles, access *fakeAccess) *UIHandlers {
	t.Helper()
	if roles == nil {
		roles = &fakeRoles{}
	}
	if access == nil {
		access = &fakeAccess{}
	}
	return &UIHandlers{
		T:        RequireTemplateRenderer(t),
		Roles:    roles,
		Access:   access,
		Policies: DefaultPolicies("/", "/dashboard"),
	}
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	return req
}

func TestUIHandlers_HomeShowsSignInAndPersonas(t *testing.T) {
	ui := newTestUI(t, nil, nil)
	ui.DevPersonas = []string{"admin", "student"}

	rec := httptest.NewRecorder()
	ui.Home(rec, browserRequest("/?redirect_uri=/student"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<!doctype html>")
	assert.Contains(t, body, "Sign in")
	assert.Contains(t, body, "login_hint=admin")
	assert.Contains(t, body, "login_hint=student")
	assert.Contains(t, body, "redirect_uri=%2Fstudent")
	assert.NotContains(t, body, "Sign out")
}

func TestUIHandlers_HomeUnknownPathIs404(t *testing.T) {
	ui := newTestUI(t, nil, nil)
	rec := httptest.NewRecorder()
	ui.Home(rec, browserRequest("/nowhere"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUIHandlers_DashboardFullPage(t *testing.T) {
	ui := newTestUI(t, nil, nil)
	req := withUser(browserRequest("/dashboard"), domainauth.RoleHeadOfDepartment)

	rec := httptest.NewRecorder()
	ui.Dashboard(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Head of Department")
	assert.Contains(t, body, `href="/department"`)
	assert.NotContains(t, body, `href="/admin/"`)
	assert.Contains(t, body, "Sign out")
}

func TestUIHandlers_PartialRendersContentOnly(t *testing.T) {
	ui := newTestUI(t, nil, nil)
	req := withUser(htmxRequest("/lecturer"), domainauth.RoleLecturer)

	rec := httptest.NewRecorder()
	ui.Lecturer(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "<!doctype html>")
	assert.Contains(t, body, `hx-swap-oob="outerHTML"`)
	assert.Contains(t, body, "Teaching")
	assert.Contains(t, rec.Header().Get("Hx-Trigger"), "nav:activate")
}

func TestUIHandlers_FlashRenderedOnce(t *testing.T) {
	ui := newTestUI(t, nil, nil)
	flash := httptest.NewRecorder()
	setFlash(flash, httptest.NewRequest(http.MethodGet, "/", nil), "",
		gate.Notice{Message: gate.MessageSignInRequired, Severity: gate.SeverityError})

	req := browserRequest("/")
	req.AddCookie(flash.Result().Cookies()[0])
	rec := httptest.NewRecorder()
	ui.Home(rec, req)

	assert.Contains(t, rec.Body.String(), `data-flash-message="You must sign in to view this page."`)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "flash=;")
}

func TestUIHandlers_DepartmentFetchErrorShowsMessage(t *testing.T) {
	roles := &fakeRoles{summaryFunc: func(context.Context) ([]service.RoleCount, error) {
		return nil, errors.New("db down")
	}}
	ui := newTestUI(t, roles, nil)

	rec := httptest.NewRecorder()
	ui.Department(rec, withUser(browserRequest("/department"), domainauth.RoleAdmin))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "An unexpected error occurred")
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestUIHandlers_AdminOverview(t *testing.T) {
	roles := &fakeRoles{items: []*model.RoleAssignment{{UserID: "a", Role: domainauth.RoleLecturer}}}
	access := &fakeAccess{
		dropped: 3,
		events: []*model.AccessEvent{{
			Policy: "admin", State: gate.StateUnauthorized, Path: "/admin/roles",
			UserID: "u-student", Role: domainauth.RoleStudent, OccurredAt: time.Now(),
		}},
	}
	ui := newTestUI(t, roles, access)

	rec := httptest.NewRecorder()
	ui.AdminOverview(rec, withUser(browserRequest("/admin/"), domainauth.RoleAdmin))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Assignments by role")
	assert.Contains(t, body, "3 audit events were dropped")
	assert.Contains(t, body, "unauthorized (admin)")
	require.Len(t, access.opts, 1)
	assert.Equal(t, recentAccessLimit, access.opts[0].Limit)
}

func TestUIHandlers_AdminRolesRendersCSRFField(t *testing.T) {
	ui := newTestUI(t, &fakeRoles{items: []*model.RoleAssignment{{UserID: "jdoe", Role: domainauth.RoleStudent, AssignedBy: "u-admin"}}}, nil)
	handler := CSRFProtection("")(http.HandlerFunc(ui.AdminRoles))

	req := withUser(browserRequest("/admin/roles"), domainauth.RoleAdmin)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok-123"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="csrf_token" value="tok-123"`)
	assert.Contains(t, body, "X-Csrf-Token")
	assert.Contains(t, body, "jdoe")
	assert.Contains(t, body, `action="/admin/roles/jdoe/delete"`)
}

func TestUIHandlers_AdminRolesPagination(t *testing.T) {
	roles := &fakeRoles{}
	for i := range 25 {
		roles.items = append(roles.items, &model.RoleAssignment{UserID: fmt.Sprintf("user-%02d", i), Role: domainauth.RoleStudent})
	}
	ui := newTestUI(t, roles, nil)

	rec := httptest.NewRecorder()
	ui.AdminRoles(rec, withUser(browserRequest("/admin/roles"), domainauth.RoleAdmin))
	body := rec.Body.String()
	assert.Contains(t, body, "Showing 1&ndash;20")
	assert.Contains(t, body, "page=2")
	assert.NotContains(t, body, "user-20")

	rec = httptest.NewRecorder()
	ui.AdminRoles(rec, withUser(browserRequest("/admin/roles?page=2"), domainauth.RoleAdmin))
	body = rec.Body.String()
	assert.Contains(t, body, "Showing 21&ndash;25")
	assert.Contains(t, body, "user-24")
	assert.Contains(t, body, "Previous")
	assert.NotContains(t, body, "Next")
}

func TestUIHandlers_AdminAssignRole_Success(t *testing.T) {
	roles := &fakeRoles{}
	ui := newTestUI(t, roles, nil)

	req := withUser(formRequest("/admin/roles", url.Values{"user_id": {" jdoe "}, "role": {"lecturer"}}), domainauth.RoleAdmin)
	rec := httptest.NewRecorder()
	ui.AdminAssignRole(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/roles", rec.Header().Get("Location"))
	assert.True(t, hasCookie(rec.Result(), flashCookie))
	assert.Equal(t, "jdoe", roles.last().UserID)
	assert.Equal(t, "u-admin", roles.last().AssignedBy)
	require.Len(t, roles.items, 1)
	assert.Equal(t, domainauth.RoleLecturer, roles.items[0].Role)
}

func TestUIHandlers_AdminAssignRole_HTMXToast(t *testing.T) {
	ui := newTestUI(t, &fakeRoles{}, nil)

	req := withUser(formRequest("/admin/roles", url.Values{"user_id": {"jdoe"}, "role": {"admin"}}), domainauth.RoleAdmin)
	req.Header.Set("Hx-Request", "true")
	rec := httptest.NewRecorder()
	ui.AdminAssignRole(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/admin/roles", rec.Header().Get("Hx-Redirect"))
	assert.Contains(t, rec.Header().Get("Hx-Trigger"), "Assigned Admin to jdoe.")
}

func TestUIHandlers_AdminAssignRole_FormErrors(t *testing.T) {
	tests := []struct {
		name  string
		roles *fakeRoles
		form  url.Values
		want  string
	}{
		{"bad role", &fakeRoles{}, url.Values{"user_id": {"jdoe"}, "role": {"dean"}}, "role must be one of"},
		{"missing user", &fakeRoles{}, url.Values{"role": {"admin"}}, "user_id is required"},
		{
			"conflict",
			&fakeRoles{items: []*model.RoleAssignment{{UserID: "jdoe", Role: domainauth.RoleStudent}}},
			url.Values{"user_id": {"jdoe"}, "role": {"admin"}},
			"Tick replace to overwrite it.",
		},
		{
			"internal",
			&fakeRoles{assignFunc: func(context.Context, model.AssignRoleRequest) (*model.RoleAssignment, error) {
				return nil, errors.New("db down")
			}},
			url.Values{"user_id": {"jdoe"}, "role": {"admin"}},
			"Unable to save the role assignment.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ui := newTestUI(t, tt.roles, nil)
			rec := httptest.NewRecorder()
			ui.AdminAssignRole(rec, withUser(formRequest("/admin/roles", tt.form), domainauth.RoleAdmin))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Empty(t, rec.Header().Get("Location"))
		})
	}
}

func TestUIHandlers_AdminDeleteRole(t *testing.T) {
	roles := &fakeRoles{items: []*model.RoleAssignment{{UserID: "jdoe", Role: domainauth.RoleStudent}}}
	ui := newTestUI(t, roles, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/roles/{user}/delete", ui.AdminDeleteRole)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withUser(formRequest("/admin/roles/jdoe/delete", nil), domainauth.RoleAdmin))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, roles.items)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, withUser(formRequest("/admin/roles/jdoe/delete", nil), domainauth.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no longer exists")
}

func TestUIHandlers_AdminAccessFilters(t *testing.T) {
	access := &fakeAccess{events: []*model.AccessEvent{
		{Policy: "admin", State: gate.StateUnauthorized, Path: "/admin/", UserID: "u-1", Role: domainauth.RoleStudent},
		{Policy: "student", State: gate.StateUnauthenticated, Path: "/student"},
	}}
	ui := newTestUI(t, nil, access)

	rec := httptest.NewRecorder()
	ui.AdminAccess(rec, withUser(browserRequest("/admin/access?policy=admin"), domainauth.RoleAdmin))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, access.opts, 1)
	assert.Equal(t, "admin", access.opts[0].Policy)
	assert.Equal(t, 21, access.opts[0].Limit)
	body := rec.Body.String()
	assert.Contains(t, body, "<code>/admin/</code>")
	assert.NotContains(t, body, "<code>/student</code>")
}

func TestUIHandlers_AdminAccessError(t *testing.T) {
	ui := newTestUI(t, nil, &fakeAccess{err: errors.New("db down")})
	rec := httptest.NewRecorder()
	ui.AdminAccess(rec, withUser(browserRequest("/admin/access"), domainauth.RoleAdmin))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unable to load the access log.")
}

func TestUIHandlers_Waiting(t *testing.T) {
	ui := newTestUI(t, nil, nil)

	rec := httptest.NewRecorder()
	ui.Waiting(rec, browserRequest("/admin/roles?page=2"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `http-equiv="refresh"`)
	assert.Contains(t, rec.Body.String(), "Checking your session")

	rec = httptest.NewRecorder()
	ui.Waiting(rec, htmxRequest("/admin/roles?page=2"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<!doctype html>")
	assert.Contains(t, rec.Body.String(), "load delay:2s")
}

func TestUIHandlers_NotFound(t *testing.T) {
	ui := newTestUI(t, nil, nil)

	rec := httptest.NewRecorder()
	ui.NotFound(rec, browserRequest("/missing"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "doesn&#39;t exist")

	rec = httptest.NewRecorder()
	ui.NotFound(rec, apiRequest("/api/missing"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found","message":"Not Found"}`, rec.Body.String())
}

func TestUIHandlers_SignedOut(t *testing.T) {
	ui := newTestUI(t, nil, nil)
	rec := httptest.NewRecorder()
	ui.SignedOut(rec, browserRequest("/auth/signed-out?redirect_uri=/admin/"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You have been signed out.")
	assert.Contains(t, rec.Body.String(), "redirect_uri=%2Fadmin%2F")
}

func TestPolicies_Nav(t *testing.T) {
	p := DefaultPolicies("/", "/dashboard")
	pages := func(role domainauth.Role) []string {
		var out []string
		for _, n := range p.Nav(role) {
			out = append(out, n.Page)
		}
		return out
	}
	assert.Equal(t, []string{PageDashboard, PageDepartment, PageAdmin}, pages(domainauth.RoleAdmin))
	assert.Equal(t, []string{PageDashboard, PageDepartment, PageLecturer}, pages(domainauth.RoleHeadOfDepartment))
	assert.Equal(t, []string{PageDashboard, PageLecturer}, pages(domainauth.RoleLecturer))
	assert.Equal(t, []string{PageDashboard, PageStudent}, pages(domainauth.RoleStudent))
	assert.Empty(t, pages(domainauth.RoleUnknown))
}

func TestDefaultPolicies_DashboardNeverFallsBackToItself(t *testing.T) {
	p := DefaultPolicies("/", "/dashboard")
	assert.Equal(t, "/", p.Dashboard.FallbackRoute)
	assert.Equal(t, "/dashboard", p.Admin.FallbackRoute)
}

func TestRoleHome(t *testing.T) {
	assert.Equal(t, "/admin/", RoleHome(domainauth.RoleAdmin))
	assert.Equal(t, "/department", RoleHome(domainauth.RoleHeadOfDepartment))
	assert.Equal(t, "/lecturer", RoleHome(domainauth.RoleLecturer))
	assert.Equal(t, "/student", RoleHome(domainauth.RoleStudent))
	assert.Equal(t, "/dashboard", RoleHome(domainauth.RoleUnknown))
}
