package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/gate"
	mockauth "github.com/eelab/labdesk/internal/mocks/auth"
	"github.com/eelab/labdesk/internal/observability/metrics"
	"github.com/eelab/labdesk/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routerHarness struct {
	handler http.Handler
	roles   *fakeRoles
	audit   *mockauth.AccessRecorder
	states  *mockauth.MemoryGateStateStore
}

// sessionsByRole resolves "sess-<role>" cookies to a session with that role.
func sessionsByRole() *mockAuthService {
	return &mockAuthService{getSessionFunc: func(_ context.Context, id string) (*domainauth.Session, error) {
		role, err := domainauth.ParseRole(strings.TrimPrefix(id, "sess-"))
		if err != nil {
			return nil, ports.ErrSessionNotFound
		}
		return testSession(id, role), nil
	}}
}

func newRouterHarness(t *testing.T, mutate ...func(*RouterServices)) *routerHarness {
	t.Helper()
	SkipIfNoTemplates(t)
	h := &routerHarness{
		roles:  &fakeRoles{},
		audit:  &mockauth.AccessRecorder{},
		states: mockauth.NewMemoryGateStateStore(),
	}
	s := RouterServices{
		Auth:       sessionsByRole(),
		Roles:      h.roles,
		Access:     &fakeAccess{},
		GateStates: h.states,
		Audit:      h.audit,
		Policies:   DefaultPolicies("/", "/dashboard"),
		TemplateFS: os.DirFS(TemplatePathFromTest),
		StaticFS:   os.DirFS("../../frontend/static"),
	}
	for _, m := range mutate {
		m(&s)
	}
	handler, err := NewRouter(s)
	require.NoError(t, err)
	h.handler = handler
	return h
}

func (h *routerHarness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func signedIn(req *http.Request, role domainauth.Role) *http.Request {
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-" + role.String()})
	return req
}

func TestNewRouter_RequiresServices(t *testing.T) {
	_, err := NewRouter(RouterServices{})
	require.Error(t, err)
}

func TestRouter_Health(t *testing.T) {
	h := newRouterHarness(t)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, healthResponse, rec.Body.String())

	rec = h.do(httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRouter_StaticAssets(t *testing.T) {
	h := newRouterHarness(t)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/static/js/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "showToast")
}

func TestRouter_HomeIsPublic(t *testing.T) {
	h := newRouterHarness(t)
	rec := h.do(browserRequest("/"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.audit.Events())
}

func TestRouter_SignedOutUserRedirectedToEntry(t *testing.T) {
	h := newRouterHarness(t)
	rec := h.do(browserRequest("/department"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?redirect_uri=%2Fdepartment", rec.Header().Get("Location"))

	events := h.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "department", events[0].Policy)
	assert.Equal(t, gate.StateUnauthenticated, events[0].State)
}

func TestRouter_RoleHomes(t *testing.T) {
	tests := []struct {
		role     domainauth.Role
		path     string
		admitted bool
	}{
		{domainauth.RoleAdmin, "/admin/", true},
		{domainauth.RoleAdmin, "/department", true},
		{domainauth.RoleAdmin, "/student", false},
		{domainauth.RoleHeadOfDepartment, "/department", true},
		{domainauth.RoleHeadOfDepartment, "/lecturer", true},
		{domainauth.RoleHeadOfDepartment, "/admin/", false},
		{domainauth.RoleLecturer, "/lecturer", true},
		{domainauth.RoleLecturer, "/department", false},
		{domainauth.RoleStudent, "/student", true},
		{domainauth.RoleStudent, "/admin/roles", false},
		{domainauth.RoleStudent, "/dashboard", true},
	}
	for _, tt := range tests {
		t.Run(tt.role.String()+tt.path, func(t *testing.T) {
			h := newRouterHarness(t)
			rec := h.do(signedIn(browserRequest(tt.path), tt.role))
			if tt.admitted {
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Empty(t, h.audit.Events())
				return
			}
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
			require.Len(t, h.audit.Events(), 1)
			assert.Equal(t, tt.role, h.audit.Events()[0].Role)
		})
	}
}

func TestRouter_AdminRedirectsToTrailingSlash(t *testing.T) {
	h := newRouterHarness(t)
	rec := h.do(browserRequest("/admin"))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/admin/", rec.Header().Get("Location"))
}

func TestRouter_AdminUnknownPathIsGated(t *testing.T) {
	h := newRouterHarness(t)

	rec := h.do(browserRequest("/admin/secret"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = h.do(signedIn(browserRequest("/admin/secret"), domainauth.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_AdminPostRequiresCSRF(t *testing.T) {
	h := newRouterHarness(t)

	form := url.Values{"user_id": {"jdoe"}, "role": {"student"}}
	rec := h.do(signedIn(formRequest("/admin/roles", form), domainauth.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, h.roles.items)

	page := h.do(signedIn(browserRequest("/admin/roles"), domainauth.RoleAdmin))
	require.Equal(t, http.StatusOK, page.Code)
	csrf := cookieNamed(page.Result(), csrfCookieName)
	require.NotNil(t, csrf)
	assert.Contains(t, page.Body.String(), csrf.Value)

	form.Set(csrfFormField, csrf.Value)
	req := signedIn(formRequest("/admin/roles", form), domainauth.RoleAdmin)
	req.AddCookie(csrf)
	req.AddCookie(&http.Cookie{Name: gateClientCookie, Value: testClientID})
	rec = h.do(req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, h.roles.items, 1)
	assert.Equal(t, "u-admin", h.roles.items[0].AssignedBy)
}

func TestRouter_StudentCannotPostAdminForm(t *testing.T) {
	h := newRouterHarness(t)
	req := signedIn(formRequest("/admin/roles", url.Values{"user_id": {"me"}, "role": {"admin"}}), domainauth.RoleStudent)
	rec := h.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Empty(t, h.roles.items)
}

func TestRouter_API(t *testing.T) {
	h := newRouterHarness(t)

	rec := h.do(apiRequest("/api/me"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(signedIn(apiRequest("/api/me"), domainauth.RoleStudent))
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "/student", me["role_home"])
	assert.Equal(t, true, me["via_cookie"])

	rec = h.do(signedIn(apiRequest("/api/admin/roles"), domainauth.RoleStudent))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := signedIn(jsonRequest(http.MethodPost, "/api/admin/roles", `{"user_id":"jdoe","role":"lecturer"}`), domainauth.RoleAdmin)
	rec = h.do(req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, h.roles.items, 1)

	rec = h.do(signedIn(jsonRequest(http.MethodDelete, "/api/admin/roles/jdoe", ""), domainauth.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_AuthStatus(t *testing.T) {
	h := newRouterHarness(t)
	rec := h.do(signedIn(apiRequest("/api/auth/status"), domainauth.RoleLecturer))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)
}

func TestRouter_NotFound(t *testing.T) {
	h := newRouterHarness(t)

	rec := h.do(browserRequest("/nope"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = h.do(apiRequest("/api/nope"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestRouter_Metrics(t *testing.T) {
	h := newRouterHarness(t, func(s *RouterServices) {
		s.Metrics = metrics.New()
		s.MetricsPath = "/internal/metrics"
	})
	h.do(browserRequest("/student"))

	rec := h.do(httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "labdesk_gate_decisions_total")
}

func TestRouter_Compression(t *testing.T) {
	h := newRouterHarness(t, func(s *RouterServices) { s.Compression = true })
	req := browserRequest("/")
	req.Header.Set("Accept-Encoding", "gzip")
	rec := h.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}
