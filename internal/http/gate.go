package httpx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eelab/labdesk/internal/domain/gate"
	"github.com/eelab/labdesk/internal/domain/model"
	"github.com/eelab/labdesk/internal/ports"
	"github.com/google/uuid"
)

const (
	gateClientCookie = "gate_client"
	flashCookie      = "flash"

	gateClientMaxAge = 365 * 24 * 60 * 60
	flashMaxAge      = 60

	// DefaultGateStateTimeout bounds each previous-state load or save.
	DefaultGateStateTimeout = 300 * time.Millisecond

	waitingRetryAfter = 2 * time.Second
)

// GateMetrics counts gate decisions.
type GateMetrics interface {
	GateDecision(policy string, state gate.State, notified bool)
}

// GatekeeperOptions groups dependencies for NewGatekeeper.
type GatekeeperOptions struct {
	Resolver SessionResolver      // required
	States   ports.GateStateStore // required
	Audit    ports.AccessRecorder // optional
	Metrics  GateMetrics          // optional
	Waiting  http.Handler         // optional; renders the waiting indicator for browsers
	Logger   *slog.Logger         // optional
	// CookieDomain scopes the gate_client and flash cookies.
	CookieDomain string
	StateTimeout time.Duration
}

// Gatekeeper guards routes with a role policy. Gate is the layout form that
// wraps a whole route group; GatePage is the component form that wraps a
// single handler. Both run the same decision and produce the same response.
type Gatekeeper struct {
	resolver     SessionResolver
	states       ports.GateStateStore
	audit        ports.AccessRecorder
	metrics      GateMetrics
	waiting      http.Handler
	logger       *slog.Logger
	cookieDomain string
	stateTimeout time.Duration
}

// NewGatekeeper validates opts and returns a Gatekeeper.
func NewGatekeeper(opts GatekeeperOptions) (*Gatekeeper, error) {
	if opts.Resolver == nil {
		return nil, errors.New("gatekeeper: session resolver is required")
	}
	if opts.States == nil {
		return nil, errors.New("gatekeeper: gate state store is required")
	}
	g := &Gatekeeper{
		resolver:     opts.Resolver,
		states:       opts.States,
		audit:        opts.Audit,
		metrics:      opts.Metrics,
		waiting:      opts.Waiting,
		logger:       opts.Logger,
		cookieDomain: opts.CookieDomain,
		stateTimeout: opts.StateTimeout,
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.waiting == nil {
		g.waiting = http.HandlerFunc(plainWaiting)
	}
	if g.stateTimeout <= 0 {
		g.stateTimeout = DefaultGateStateTimeout
	}
	return g, nil
}

// Gate returns middleware that admits requests allowed by p.
func (g *Gatekeeper) Gate(p gate.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(w, r, p, next)
		})
	}
}

// GatePage guards a single handler with p.
func (g *Gatekeeper) GatePage(p gate.Policy, h http.Handler) http.Handler {
	return g.Gate(p)(h)
}

// GatePageFunc is GatePage for a handler function.
func (g *Gatekeeper) GatePageFunc(p gate.Policy, h http.HandlerFunc) http.Handler {
	return g.Gate(p)(h)
}

func (g *Gatekeeper) serve(w http.ResponseWriter, r *http.Request, p gate.Policy, next http.Handler) {
	res := g.resolver.Resolve(r)
	clientID := g.ensureClientID(w, r)
	key := ports.GateStateKey{ClientID: clientID, Policy: p.Name}

	m := gate.NewMachine(p)
	m.Restore(g.loadState(r.Context(), key))

	resp := &gateResponder{w: w, r: r, mode: clientModeOf(r), cookieDomain: g.cookieDomain}
	out := gate.NewGuard(m, resp, resp).Observe(res.GateSession())

	if out.Changed() {
		g.saveState(r.Context(), key, out.State)
	}
	g.observe(r, p, res, clientID, out)

	switch out.State {
	case gate.StateAuthorized:
		ctx := SetUserInContext(r.Context(), res.User)
		ctx = SetSessionInContext(ctx, res.Session)
		next.ServeHTTP(w, r.WithContext(ctx))
	case gate.StateLoading:
		g.writeWaiting(w, r, resp.mode)
	case gate.StateUnauthenticated, gate.StateUnauthorized:
		resp.finishDenied(out.State)
	case gate.StateUnknown:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (g *Gatekeeper) observe(r *http.Request, p gate.Policy, res Resolved, clientID string, out gate.Outcome) {
	notified := out.Notice != nil
	if g.metrics != nil {
		g.metrics.GateDecision(p.Name, out.State, notified)
	}

	attrs := []any{
		slog.String("policy", p.Name),
		slog.String("state", out.State.String()),
		slog.String("previous", out.Previous.String()),
		slog.String("path", r.URL.Path),
	}
	if res.User != nil {
		attrs = append(attrs, slog.String("user_id", res.User.ID), slog.String("role", res.User.Role.String()))
	}
	if !notified {
		g.logger.DebugContext(r.Context(), "gate decision", attrs...)
		return
	}
	g.logger.InfoContext(r.Context(), "gate denied", attrs...)

	if g.audit == nil {
		return
	}
	ev := model.AccessEvent{
		Policy:   p.Name,
		State:    out.State,
		Path:     r.URL.Path,
		ClientID: clientID,
	}
	if res.User != nil {
		ev.UserID = res.User.ID
		ev.Role = res.User.Role
	}
	g.audit.Record(ev)
}

// loadState returns StateUnknown when the store is unavailable, so a notice
// may repeat but rendering is unaffected.
func (g *Gatekeeper) loadState(ctx context.Context, key ports.GateStateKey) gate.State {
	ctx, cancel := context.WithTimeout(ctx, g.stateTimeout)
	defer cancel()
	st, err := g.states.Load(ctx, key)
	if err != nil {
		g.logger.WarnContext(ctx, "gate state load failed",
			slog.String("policy", key.Policy),
			slog.Any("error", err),
		)
		return gate.StateUnknown
	}
	return st
}

func (g *Gatekeeper) saveState(ctx context.Context, key ports.GateStateKey, st gate.State) {
	ctx, cancel := context.WithTimeout(ctx, g.stateTimeout)
	defer cancel()
	if err := g.states.Save(ctx, key, st); err != nil {
		g.logger.WarnContext(ctx, "gate state save failed",
			slog.String("policy", key.Policy),
			slog.Any("error", err),
		)
	}
}

// ForgetClient drops every stored gate state of the requesting client.
func (g *Gatekeeper) ForgetClient(r *http.Request) {
	c, err := r.Cookie(gateClientCookie)
	if err != nil || c.Value == "" {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), g.stateTimeout)
	defer cancel()
	if err := g.states.Clear(ctx, c.Value); err != nil {
		g.logger.WarnContext(ctx, "gate state clear failed", slog.Any("error", err))
	}
}

func (g *Gatekeeper) ensureClientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(gateClientCookie); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     gateClientCookie,
		Value:    id,
		Path:     "/",
		Domain:   g.cookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   gateClientMaxAge,
	})
	// Later handlers in this request see the same id.
	r.AddCookie(&http.Cookie{Name: gateClientCookie, Value: id})
	return id
}

func (g *Gatekeeper) writeWaiting(w http.ResponseWriter, r *http.Request, mode clientMode) {
	w.Header().Set("Retry-After", strconv.Itoa(int(waitingRetryAfter.Seconds())))
	w.Header().Set("Cache-Control", "no-store")
	if mode == clientAPI {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "session_loading",
			Err:     errors.New("session is still loading, retry shortly"),
		})
		return
	}
	g.waiting.ServeHTTP(w, r)
}

func plainWaiting(w http.ResponseWriter, r *http.Request) {
	code := http.StatusServiceUnavailable
	if WantsPartial(r) {
		code = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte("Loading..."))
}

type clientMode uint8

const (
	clientPage clientMode = iota
	clientHTMX
	clientAPI
)

func clientModeOf(r *http.Request) clientMode {
	switch {
	case IsHTMX(r):
		return clientHTMX
	case IsBrowserRequest(r):
		return clientPage
	default:
		return clientAPI
	}
}

// gateResponder is the request-bound Navigator and Notifier. Notices are
// written to headers immediately; navigation is recorded and flushed by
// finishDenied once the outcome is known.
type gateResponder struct {
	w            http.ResponseWriter
	r            *http.Request
	mode         clientMode
	cookieDomain string
	target       string
}

func (p *gateResponder) Navigate(path string) { p.target = path }

func (p *gateResponder) Notify(n gate.Notice) {
	switch p.mode {
	case clientHTMX:
		TriggerToast(p.w, n)
	case clientPage:
		setFlash(p.w, p.r, p.cookieDomain, n)
	case clientAPI:
		// The JSON error body carries the message.
	}
}

func (p *gateResponder) finishDenied(st gate.State) {
	target := p.target
	if st == gate.StateUnauthenticated {
		target = withReturnTo(target, redirectPathForRequest(p.r))
	}

	switch p.mode {
	case clientHTMX:
		SetHXRedirect(p.w, target)
		p.w.WriteHeader(http.StatusOK)
	case clientPage:
		http.Redirect(p.w, p.r, target, http.StatusSeeOther)
	case clientAPI:
		ep := ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New(gate.MessageSignInRequired),
			Extra:   map[string]string{"redirect_to": target},
		}
		if st == gate.StateUnauthorized {
			ep.Code = http.StatusForbidden
			ep.ErrCode = "insufficient_permissions"
			ep.Err = errors.New(gate.MessageNotAuthorized)
		}
		WriteError(p.w, ep)
	}
}

// withReturnTo appends redirect_uri so the entry page can send the user back
// after sign-in. The entry route itself is never used as a return target.
func withReturnTo(target, returnTo string) string {
	if returnTo == "" || returnTo == "/" {
		return target
	}
	u, err := url.Parse(target)
	if err != nil || u.Path == returnTo {
		return target
	}
	q := u.Query()
	q.Set("redirect_uri", returnTo)
	u.RawQuery = q.Encode()
	return u.String()
}

func redirectPathForRequest(r *http.Request) string {
	if IsHTMX(r) {
		if current := safeRedirectFromURL(r.Header.Get("Hx-Current-Url")); current != "" {
			return current
		}
	}
	return safeRedirectPath(r.URL.RequestURI())
}

func safeRedirectFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Host != "" && !u.IsAbs()) {
		return ""
	}
	if u.IsAbs() {
		return safeRedirectPath(u.RequestURI())
	}
	return safeRedirectPath(raw)
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	return candidate
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

type flashPayload struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func setFlash(w http.ResponseWriter, r *http.Request, domain string, n gate.Notice) {
	b, err := json.Marshal(flashPayload{Message: n.Message, Type: string(n.Severity)})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   flashMaxAge,
	})
}

// ConsumeFlash returns the pending flash notice, if any, and expires the cookie.
func ConsumeFlash(w http.ResponseWriter, r *http.Request, domain string) *gate.Notice {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	clearCookie(w, r, domain, flashCookie)

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var fp flashPayload
	if err := json.Unmarshal(raw, &fp); err != nil || fp.Message == "" {
		return nil
	}
	return &gate.Notice{Message: fp.Message, Severity: gate.Severity(fp.Type)}
}

// clearCookie expires a cookie, mirroring the attributes used to set it.
func clearCookie(w http.ResponseWriter, r *http.Request, domain, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
