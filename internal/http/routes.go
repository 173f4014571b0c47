package httpx

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	labdesk "github.com/eelab/labdesk"
	"github.com/eelab/labdesk/internal/observability/metrics"
	"github.com/eelab/labdesk/internal/ports"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth   AuthServiceInterface // required
	Roles  RolesService         // required
	Access AccessLogService     // required
	// GateStates remembers the last gate state per client and policy.
	GateStates ports.GateStateStore // required
	Audit      ports.AccessRecorder
	// Tokens enables bearer tokens; nil disables both issuing and accepting them.
	Tokens interface {
		TokenIssuer
		TokenVerifier
	}
	Metrics  *metrics.Metrics
	Policies Policies
	// TemplateFS and StaticFS override the embedded assets (tests, dev mode).
	TemplateFS fs.FS
	StaticFS   fs.FS
	IsDev      bool

	DevPersonas    []string
	CookieDomain   string
	SessionTimeout time.Duration
	Compression    bool
	MetricsPath    string
	Logger         *slog.Logger

	// CompressionLevel is the gzip level; zero uses the default.
	CompressionLevel int
}

// NewRouter wires handlers, the gate and middleware into one handler.
func NewRouter(s RouterServices) (http.Handler, error) {
	if s.Auth == nil || s.Roles == nil || s.Access == nil {
		return nil, errors.New("router: auth, roles and access services are required")
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	templateFS, staticFS, err := resolveAssets(s)
	if err != nil {
		return nil, err
	}
	renderer, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: templateFS, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	cookie := &CookieResolver{Sessions: s.Auth, Timeout: s.SessionTimeout, Metrics: s.Metrics, Logger: logger}
	resolver := ChainResolver{cookie}
	if s.Tokens != nil {
		resolver = ChainResolver{&BearerResolver{Tokens: s.Tokens, Logger: logger}, cookie}
	}

	ui := &UIHandlers{
		T:            renderer,
		Roles:        s.Roles,
		Access:       s.Access,
		Policies:     s.Policies,
		Resolver:     cookie,
		DevPersonas:  s.DevPersonas,
		CookieDomain: s.CookieDomain,
		Logger:       logger,
	}

	gk, err := NewGatekeeper(GatekeeperOptions{
		Resolver:     resolver,
		States:       s.GateStates,
		Audit:        s.Audit,
		Metrics:      s.Metrics,
		Waiting:      http.HandlerFunc(ui.Waiting),
		Logger:       logger,
		CookieDomain: s.CookieDomain,
	})
	if err != nil {
		return nil, err
	}

	auth := &AuthHandlers{Svc: s.Auth, Gate: gk, UI: ui, CookieDomain: s.CookieDomain, Logger: logger}
	if s.Tokens != nil {
		auth.Tokens = s.Tokens
	}
	api := &APIHandlers{Roles: s.Roles, Logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))
	if s.Metrics != nil {
		path := s.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, s.Metrics.Handler())
	}

	registerAuthRoutes(mux, auth, gk, s.Policies)
	registerUIRoutes(mux, ui, gk, s.Policies)
	registerAPIRoutes(mux, api, gk, s.Policies)
	mux.HandleFunc("/", ui.NotFound)

	var h http.Handler = s.Metrics.Middleware(mux)
	h = BrowserDetection()(h)
	if s.Compression {
		h = Compression(CompressionConfig{Level: s.CompressionLevel, Logger: logger})(h)
	}
	h = Logging(logger)(h)
	return Recover(logger)(h), nil
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, gk *Gatekeeper, p Policies) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/status", h.Status)
	mux.Handle("POST /api/auth/token", gk.GatePageFunc(p.API, h.Token))
}

func registerUIRoutes(mux *http.ServeMux, ui *UIHandlers, gk *Gatekeeper, p Policies) {
	mux.HandleFunc("GET /{$}", ui.Home)
	mux.HandleFunc("GET /auth/signed-out", ui.SignedOut)

	// Component form: each page guards itself.
	mux.Handle("GET /dashboard", gk.GatePageFunc(p.Dashboard, ui.Dashboard))
	mux.Handle("GET /department", gk.GatePageFunc(p.Department, ui.Department))
	mux.Handle("GET /lecturer", gk.GatePageFunc(p.Lecturer, ui.Lecturer))
	mux.Handle("GET /student", gk.GatePageFunc(p.Student, ui.Student))

	// Layout form: one gate in front of the whole admin area.
	admin := http.NewServeMux()
	admin.HandleFunc("GET /admin/{$}", ui.AdminOverview)
	admin.HandleFunc("GET /admin/roles", ui.AdminRoles)
	admin.HandleFunc("POST /admin/roles", ui.AdminAssignRole)
	admin.HandleFunc("POST /admin/roles/{user}/delete", ui.AdminDeleteRole)
	admin.HandleFunc("GET /admin/access", ui.AdminAccess)
	admin.HandleFunc("/admin/", ui.NotFound)
	mux.Handle("/admin/", gk.Gate(p.Admin)(CSRFProtection(ui.CookieDomain)(admin)))
	mux.Handle("GET /admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))
}

func registerAPIRoutes(mux *http.ServeMux, api *APIHandlers, gk *Gatekeeper, p Policies) {
	mux.Handle("GET /api/me", gk.GatePageFunc(p.API, api.Me))

	adminAPI := http.NewServeMux()
	adminAPI.HandleFunc("GET /api/admin/roles", api.ListRoles)
	adminAPI.HandleFunc("POST /api/admin/roles", api.AssignRole)
	adminAPI.HandleFunc("DELETE /api/admin/roles/{user}", api.DeleteRole)
	mux.Handle("/api/admin/", gk.Gate(p.Admin)(adminAPI))
}

// resolveAssets picks template and static filesystems: explicit overrides,
// disk in dev mode, otherwise the embedded copies.
func resolveAssets(s RouterServices) (fs.FS, fs.FS, error) {
	templateFS, staticFS := s.TemplateFS, s.StaticFS
	if s.IsDev {
		if templateFS == nil {
			templateFS = os.DirFS(TemplatePathFromRoot)
		}
		if staticFS == nil {
			staticFS = os.DirFS("frontend/static")
		}
	}
	var err error
	if templateFS == nil {
		if templateFS, err = fs.Sub(labdesk.TemplateFS, "frontend/templates"); err != nil {
			return nil, nil, fmt.Errorf("templates sub-filesystem: %w", err)
		}
	}
	if staticFS == nil {
		if staticFS, err = fs.Sub(labdesk.StaticFS, "frontend/static"); err != nil {
			return nil, nil, fmt.Errorf("static sub-filesystem: %w", err)
		}
	}
	return templateFS, staticFS, nil
}
