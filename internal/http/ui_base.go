package httpx

import (
	"context"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/model"
	"github.com/eelab/labdesk/internal/service"
)

const appName = "labdesk"

// RolesService is the role assignment surface the UI and API need.
type RolesService interface {
	Assign(ctx context.Context, req model.AssignRoleRequest) (*model.RoleAssignment, error)
	List(ctx context.Context, limit, offset int) ([]*model.RoleAssignment, error)
	Remove(ctx context.Context, userID string) error
	Summary(ctx context.Context) ([]service.RoleCount, error)
}

// AccessLogService reads the access audit log.
type AccessLogService interface {
	List(ctx context.Context, opts model.AccessEventListOptions) ([]*model.AccessEvent, error)
	Dropped() int64
}

// Compile-time interface assertions.
var (
	_ RolesService     = (*service.RoleService)(nil)
	_ AccessLogService = (*service.AccessAuditor)(nil)
)

// UIHandlers serves browser-facing routes.
type UIHandlers struct {
	T        *TemplateRenderer
	Roles    RolesService
	Access   AccessLogService
	Policies Policies
	// Resolver lets public pages show who is signed in.
	Resolver     SessionResolver
	DevPersonas  []string
	CookieDomain string
	Logger       *slog.Logger
}

// logger returns the configured logger or falls back to slog.Default().
func (h *UIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// PageMeta contains metadata for page rendering.
type PageMeta struct {
	Title       string
	PageTitle   string
	CurrentPage string
}

// currentUser returns the gate-admitted user, or on public pages whatever the resolver finds.
func (h *UIHandlers) currentUser(r *http.Request) *domainauth.UserInfo {
	if u, ok := UserFromContext(r.Context()); ok {
		return u
	}
	if h.Resolver != nil {
		return h.Resolver.Resolve(r).User
	}
	return nil
}

// basePageData constructs the common page data map with user context.
func (h *UIHandlers) basePageData(r *http.Request, meta PageMeta) map[string]any {
	title := meta.Title
	if title == "" {
		title = meta.PageTitle
	}
	data := map[string]any{
		"Title":           title + " - " + appName,
		"PageTitle":       meta.PageTitle,
		"CurrentPage":     meta.CurrentPage,
		"IsAuthenticated": false,
	}
	if tok := GetCSRFToken(r); tok != "" {
		data["CSRFToken"] = tok
	}
	if u := h.currentUser(r); u != nil {
		data["IsAuthenticated"] = true
		data["User"] = u
		data["Nav"] = h.Policies.Nav(u.Role)
		data["RoleHome"] = RoleHome(u.Role)
	}
	return data
}

// PageSpec defines metadata and an optional fetch for page-specific data.
type PageSpec struct {
	Meta  PageMeta
	Fetch func(ctx context.Context, data map[string]any) error
}

// Page builds base data, optionally fetches content data, and renders.
func (h *UIHandlers) Page(w http.ResponseWriter, r *http.Request, spec PageSpec) {
	data := h.basePageData(r, spec.Meta)
	if spec.Fetch != nil {
		if err := spec.Fetch(r.Context(), data); err != nil {
			h.logger().ErrorContext(r.Context(), "page data fetch failed",
				slog.String("page", spec.Meta.CurrentPage),
				slog.Any("error", err),
			)
			markPageError(data)
		}
	}
	h.renderPage(w, r, data)
}

// renderPage renders the full layout, or for htmx the content fragment plus
// out-of-band title updates.
func (h *UIHandlers) renderPage(w http.ResponseWriter, r *http.Request, data map[string]any) {
	if !WantsPartial(r) {
		if n := ConsumeFlash(w, r, h.CookieDomain); n != nil {
			data["Flash"] = n
		}
		if err := h.T.RenderFull(w, r, data); err != nil {
			h.renderTemplateError(w, r, err)
		}
		return
	}

	SetHXTrigger(w, "nav:activate", map[string]string{"path": r.URL.Path})
	title, _ := data["Title"].(string)
	pageTitle, _ := data["PageTitle"].(string)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(`<title>` + html.EscapeString(title) + `</title>`))
	_, _ = w.Write([]byte(`<h1 id="header-title" class="header-title" hx-swap-oob="outerHTML">` +
		html.EscapeString(pageTitle) + `</h1>`))
	if err := h.T.t.ExecuteTemplate(w, "content", data); err != nil {
		h.logger().ErrorContext(r.Context(), "partial content render failed", slog.Any("error", err))
	}
}

func markPageError(data map[string]any) {
	data["Error"] = true
	if _, ok := data["ErrorMessage"]; ok {
		return
	}
	data["ErrorMessage"] = "An unexpected error occurred. Please try again."
}

func (h *UIHandlers) renderTemplateError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger().ErrorContext(r.Context(), "template render failed", slog.Any("error", err))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// renderErrorPage renders the standalone error page.
func (h *UIHandlers) renderErrorPage(w http.ResponseWriter, r *http.Request, code int, message string) {
	data := map[string]any{
		"Title":           http.StatusText(code) + " - " + appName,
		"Code":            strconv.Itoa(code),
		"Message":         message,
		"IsAuthenticated": h.currentUser(r) != nil,
		"RedirectURI":     safeRedirectPath(r.URL.RequestURI()),
	}
	if err := h.T.RenderError(w, code, data); err != nil {
		http.Error(w, message, code)
	}
}

// NotFound renders an HTML 404 for browsers and JSON otherwise.
func (h *UIHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found"})
		return
	}
	h.renderErrorPage(w, r, http.StatusNotFound, "The page you're looking for doesn't exist.")
}

// Waiting renders the waiting indicator shown while the session is unresolved.
// Full page loads get 503 and refresh themselves; htmx swaps get 200 and re-poll.
func (h *UIHandlers) Waiting(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":       "Loading - " + appName,
		"PageTitle":   "Loading",
		"CurrentPage": PageWaiting,
		"RetryURL":    r.URL.RequestURI(),
		"RetryAfter":  int(waitingRetryAfter.Seconds()),
	}
	code := http.StatusServiceUnavailable
	name := "waiting-page"
	if WantsPartial(r) {
		code = http.StatusOK
		name = "waiting-content"
	}
	if err := h.T.RenderNamed(w, code, name, data); err != nil {
		plainWaiting(w, r)
	}
}

// pageOpts represents pagination options for list views.
type pageOpts struct {
	Page     int
	PageSize int
}

// getPageParams parses pagination params from URL query with sane defaults.
func getPageParams(q url.Values) pageOpts {
	p := pageOpts{Page: 1, PageSize: 20}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil && n > 0 && n <= 100 {
		p.PageSize = n
	}
	return p
}

// LimitAndOffset fetches one extra item to detect next-page availability.
func (p pageOpts) LimitAndOffset() (int, int) {
	return p.PageSize + 1, (p.Page - 1) * p.PageSize
}

// paginate is a generic paginator for limit/offset list endpoints.
func paginate[T any](
	ctx context.Context,
	p pageOpts,
	fetch func(context.Context, int, int) ([]T, error),
) ([]T, PaginationData, error) {
	limit, offset := p.LimitAndOffset()
	items, err := fetch(ctx, limit, offset)
	if err != nil {
		return nil, PaginationData{}, err
	}
	pd := PaginationData{Page: p.Page, PageSize: p.PageSize, HasPrev: p.Page > 1}
	if len(items) > p.PageSize {
		pd.HasNext = true
		items = items[:p.PageSize]
	}
	if len(items) > 0 {
		pd.StartIndex = offset + 1
		pd.EndIndex = offset + len(items)
	}
	return items, pd, nil
}

// buildPageURL returns basePath with page and page_size set, preserving other non-empty params.
func buildPageURL(basePath string, q url.Values, p pageOpts) string {
	qq := make(url.Values, len(q))
	for k, v := range q {
		if len(v) > 0 && v[0] != "" {
			qq[k] = v
		}
	}
	qq.Set("page", strconv.Itoa(p.Page))
	qq.Set("page_size", strconv.Itoa(p.PageSize))
	return basePath + "?" + qq.Encode()
}
