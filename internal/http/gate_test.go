package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/gate"
	mockauth "github.com/eelab/labdesk/internal/mocks/auth"
	"github.com/eelab/labdesk/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(r *http.Request) Resolved

func (f resolverFunc) Resolve(r *http.Request) Resolved { return f(r) }

func fixedResolver(res Resolved) SessionResolver {
	return resolverFunc(func(*http.Request) Resolved { return res })
}

func asUser(role domainauth.Role) Resolved {
	return Resolved{User: &domainauth.UserInfo{ID: "u-" + role.String(), Name: "Test", Role: role}}
}

type recordingMetrics struct {
	decisions     []gate.State
	notifications int
}

func (m *recordingMetrics) GateDecision(_ string, st gate.State, notified bool) {
	m.decisions = append(m.decisions, st)
	if notified {
		m.notifications++
	}
}

type gateHarness struct {
	gk      *Gatekeeper
	states  *mockauth.MemoryGateStateStore
	audit   *mockauth.AccessRecorder
	metrics *recordingMetrics
}

func newGateHarness(t *testing.T, res SessionResolver) *gateHarness {
	t.Helper()
	h := &gateHarness{
		states:  mockauth.NewMemoryGateStateStore(),
		audit:   &mockauth.AccessRecorder{},
		metrics: &recordingMetrics{},
	}
	gk, err := NewGatekeeper(GatekeeperOptions{
		Resolver: res,
		States:   h.states,
		Audit:    h.audit,
		Metrics:  h.metrics,
	})
	require.NoError(t, err)
	h.gk = gk
	return h
}

const testClientID = "7d0d1b0e-8f6a-4c4e-9a43-1b6f5a8f3c11"

func browserRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(&http.Cookie{Name: gateClientCookie, Value: testClientID})
	return req
}

func htmxRequest(path string) *http.Request {
	req := browserRequest(path)
	req.Header.Set("Hx-Request", "true")
	return req
}

func apiRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: gateClientCookie, Value: testClientID})
	return req
}

func contentHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		u, ok := UserFromContext(r.Context())
		if ok {
			_, _ = w.Write([]byte("protected:" + u.Role.String()))
			return
		}
		_, _ = w.Write([]byte("protected"))
	})
}

func hasCookie(resp *http.Response, name string) bool {
	for _, c := range resp.Cookies() {
		if c.Name == name && c.MaxAge >= 0 {
			return true
		}
	}
	return false
}

func TestNewGatekeeper_RequiresDeps(t *testing.T) {
	_, err := NewGatekeeper(GatekeeperOptions{States: mockauth.NewMemoryGateStateStore()})
	require.Error(t, err)
	_, err = NewGatekeeper(GatekeeperOptions{Resolver: fixedResolver(Resolved{})})
	require.Error(t, err)
}

func TestGate_AuthorizedRendersContent(t *testing.T) {
	h := newGateHarness(t, fixedResolver(asUser(domainauth.RoleLecturer)))
	calls := 0
	handler := h.gk.GatePage(gate.NewPolicy("lecturer", domainauth.RoleLecturer), contentHandler(&calls))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, browserRequest("/lecturer"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "protected:lecturer", rec.Body.String())
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Empty(t, h.audit.Events())
	assert.Equal(t, 0, h.metrics.notifications)
}

func TestGate_LoadingShowsWaitingOnly(t *testing.T) {
	users := []Resolved{
		{Loading: true},
		{Loading: true, User: asUser(domainauth.RoleAdmin).User},
		{Loading: true, User: asUser(domainauth.RoleStudent).User},
	}
	for _, res := range users {
		h := newGateHarness(t, fixedResolver(res))
		calls := 0
		handler := h.gk.GatePage(gate.NewPolicy("admin", domainauth.RoleAdmin), contentHandler(&calls))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, browserRequest("/admin/"))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
		assert.Empty(t, rec.Header().Get("Location"))
		assert.Zero(t, calls)
		assert.False(t, hasCookie(rec.Result(), flashCookie))
		assert.Empty(t, h.audit.Events())
	}
}

func TestGate_LoadingAPIIsJSON503(t *testing.T) {
	h := newGateHarness(t, fixedResolver(Resolved{Loading: true}))
	calls := 0
	rec := httptest.NewRecorder()
	h.gk.GatePage(gate.NewPolicy("api", domainauth.AllRoles()...), contentHandler(&calls)).
		ServeHTTP(rec, apiRequest("/api/me"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_loading")
	assert.Zero(t, calls)
}

func TestGate_UnauthenticatedRedirectsToEntryWithReturn(t *testing.T) {
	for _, roles := range [][]domainauth.Role{{}, {domainauth.RoleAdmin}, domainauth.AllRoles()} {
		h := newGateHarness(t, fixedResolver(Resolved{}))
		calls := 0
		handler := h.gk.GatePage(gate.NewPolicy("p", roles...), contentHandler(&calls))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, browserRequest("/student?tab=kits"))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/?redirect_uri=%2Fstudent%3Ftab%3Dkits", rec.Header().Get("Location"))
		assert.Zero(t, calls)
		assert.True(t, hasCookie(rec.Result(), flashCookie))
	}
}

func TestGate_WrongRoleRedirectsToFallback(t *testing.T) {
	h := newGateHarness(t, fixedResolver(asUser(domainauth.RoleLecturer)))
	calls := 0
	p := gate.NewPolicy("mixed", domainauth.RoleAdmin, domainauth.RoleStudent)
	rec := httptest.NewRecorder()
	h.gk.GatePage(p, contentHandler(&calls)).ServeHTTP(rec, browserRequest("/student"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, gate.DefaultFallbackRoute, rec.Header().Get("Location"))
	assert.Zero(t, calls)

	events := h.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "mixed", events[0].Policy)
	assert.Equal(t, gate.StateUnauthorized, events[0].State)
	assert.Equal(t, domainauth.RoleLecturer, events[0].Role)
	assert.Equal(t, testClientID, events[0].ClientID)
	assert.Equal(t, "/student", events[0].Path)
}

func TestGate_RepeatedDenialNotifiesOnce(t *testing.T) {
	h := newGateHarness(t, fixedResolver(Resolved{}))
	calls := 0
	handler := h.gk.GatePage(gate.NewPolicy("admin", domainauth.RoleAdmin), contentHandler(&calls))

	toasts := 0
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, htmxRequest("/admin/"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Hx-Redirect"), "navigation repeats on every denial")
		if rec.Header().Get("Hx-Trigger") != "" {
			toasts++
		}
	}
	assert.Equal(t, 1, toasts)
	assert.Len(t, h.audit.Events(), 1)
	assert.Equal(t, 1, h.metrics.notifications)
	assert.Len(t, h.metrics.decisions, 3)
}

func TestGate_LoadingThenSignedOutNotifiesOnce(t *testing.T) {
	res := Resolved{Loading: true}
	h := newGateHarness(t, resolverFunc(func(*http.Request) Resolved { return res }))
	calls := 0
	handler := h.gk.GatePage(gate.NewPolicy("admin", domainauth.RoleAdmin), contentHandler(&calls))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, htmxRequest("/admin/"))
	assert.Empty(t, rec.Header().Get("Hx-Trigger"))
	assert.Empty(t, rec.Header().Get("Hx-Redirect"))

	res = Resolved{}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, htmxRequest("/admin/"))
	assert.NotEmpty(t, rec.Header().Get("Hx-Redirect"))

	var trigger map[string]toastPayload
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("Hx-Trigger")), &trigger))
	assert.Equal(t, gate.MessageSignInRequired, trigger[ToastEvent].Message)
	assert.Equal(t, "error", trigger[ToastEvent].Type)
	assert.Len(t, h.audit.Events(), 1)
}

func TestGate_PoliciesTrackedSeparately(t *testing.T) {
	h := newGateHarness(t, fixedResolver(asUser(domainauth.RoleStudent)))
	calls := 0
	admin := h.gk.GatePage(gate.NewPolicy("admin", domainauth.RoleAdmin), contentHandler(&calls))
	dept := h.gk.GatePage(gate.NewPolicy("department", domainauth.RoleHeadOfDepartment), contentHandler(&calls))

	admin.ServeHTTP(httptest.NewRecorder(), browserRequest("/admin/"))
	dept.ServeHTTP(httptest.NewRecorder(), browserRequest("/department"))

	assert.Len(t, h.audit.Events(), 2)
	st, err := h.states.Load(t.Context(), ports.GateStateKey{ClientID: testClientID, Policy: "department"})
	require.NoError(t, err)
	assert.Equal(t, gate.StateUnauthorized, st)
}

func TestGate_APIDenialsAreJSON(t *testing.T) {
	tests := []struct {
		name string
		res  Resolved
		code int
		err  string
	}{
		{"unauthenticated", Resolved{}, http.StatusUnauthorized, "authentication_required"},
		{"unauthorized", asUser(domainauth.RoleStudent), http.StatusForbidden, "insufficient_permissions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newGateHarness(t, fixedResolver(tt.res))
			calls := 0
			rec := httptest.NewRecorder()
			h.gk.GatePage(gate.NewPolicy("admin", domainauth.RoleAdmin), contentHandler(&calls)).
				ServeHTTP(rec, apiRequest("/api/admin/roles"))

			assert.Equal(t, tt.code, rec.Code)
			assert.Empty(t, rec.Header().Get("Location"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.err, body["error"])
			assert.NotEmpty(t, body["redirect_to"])
			assert.Zero(t, calls)
		})
	}
}

func TestGate_LayoutAndComponentFormsMatch(t *testing.T) {
	sessions := []Resolved{{}, {Loading: true}, asUser(domainauth.RoleStudent), asUser(domainauth.RoleAdmin)}
	p := gate.NewPolicy("admin", domainauth.RoleAdmin)
	for _, res := range sessions {
		for _, mk := range []func(string) *http.Request{browserRequest, htmxRequest, apiRequest} {
			layout := newGateHarness(t, fixedResolver(res))
			component := newGateHarness(t, fixedResolver(res))
			c1, c2 := 0, 0

			mux := http.NewServeMux()
			mux.Handle("/admin/", contentHandler(&c1))
			r1 := httptest.NewRecorder()
			layout.gk.Gate(p)(mux).ServeHTTP(r1, mk("/admin/"))

			r2 := httptest.NewRecorder()
			component.gk.GatePage(p, contentHandler(&c2)).ServeHTTP(r2, mk("/admin/"))

			assert.Equal(t, r1.Code, r2.Code)
			assert.Equal(t, r1.Body.String(), r2.Body.String())
			for _, hdr := range []string{"Location", "Hx-Redirect", "Hx-Trigger", "Retry-After", "Set-Cookie"} {
				assert.Equal(t, r1.Header().Values(hdr), r2.Header().Values(hdr), hdr)
			}
			assert.Equal(t, c1, c2)
		}
	}
}

func TestGate_StateStoreFailureStillGates(t *testing.T) {
	h := newGateHarness(t, fixedResolver(asUser(domainauth.RoleStudent)))
	h.states.LoadErr = errors.New("redis down")
	h.states.SaveErr = errors.New("redis down")
	calls := 0
	handler := h.gk.GatePage(gate.NewPolicy("admin", domainauth.RoleAdmin), contentHandler(&calls))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, browserRequest("/admin/"))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	}
	assert.Zero(t, calls)
	// Without a previous state every denial looks like a transition.
	assert.Len(t, h.audit.Events(), 2)
}

func TestGate_IssuesClientCookie(t *testing.T) {
	h := newGateHarness(t, fixedResolver(Resolved{}))
	calls := 0
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	h.gk.GatePage(gate.NewPolicy("dashboard", domainauth.AllRoles()...), contentHandler(&calls)).ServeHTTP(rec, req)

	var client *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == gateClientCookie {
			client = c
		}
	}
	require.NotNil(t, client)
	assert.True(t, client.HttpOnly)
	events := h.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, client.Value, events[0].ClientID)
}

func TestGate_ForgetClientResetsNotification(t *testing.T) {
	h := newGateHarness(t, fixedResolver(Resolved{}))
	calls := 0
	handler := h.gk.GatePage(gate.NewPolicy("admin", domainauth.RoleAdmin), contentHandler(&calls))

	handler.ServeHTTP(httptest.NewRecorder(), browserRequest("/admin/"))
	h.gk.ForgetClient(browserRequest("/auth/logout"))
	handler.ServeHTTP(httptest.NewRecorder(), browserRequest("/admin/"))

	assert.Len(t, h.audit.Events(), 2)
}

func TestConsumeFlash(t *testing.T) {
	rec := httptest.NewRecorder()
	setFlash(rec, httptest.NewRequest(http.MethodGet, "/", nil), "", gate.Notice{Message: "hi", Severity: gate.SeverityError})
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	n := ConsumeFlash(rec2, req, "")
	require.NotNil(t, n)
	assert.Equal(t, "hi", n.Message)
	assert.Equal(t, gate.SeverityError, n.Severity)
	assert.True(t, strings.Contains(rec2.Header().Get("Set-Cookie"), "Max-Age=0"))

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: flashCookie, Value: "%%%"})
	assert.Nil(t, ConsumeFlash(httptest.NewRecorder(), bad, ""))
}

func TestSafeRedirectPath(t *testing.T) {
	assert.Equal(t, "/admin/roles?page=2", safeRedirectPath("/admin/roles?page=2"))
	assert.Equal(t, "/", safeRedirectPath("https://evil.example/"))
	assert.Equal(t, "/", safeRedirectPath("//evil.example/x"))
	assert.Equal(t, "/", safeRedirectPath("relative"))
	assert.Equal(t, "/", safeRedirectPath(""))
}

func TestWithReturnTo(t *testing.T) {
	assert.Equal(t, "/", withReturnTo("/", "/"))
	assert.Equal(t, "/?redirect_uri=%2Fstudent", withReturnTo("/", "/student"))
	assert.Equal(t, "/welcome", withReturnTo("/welcome", "/welcome"))
}
