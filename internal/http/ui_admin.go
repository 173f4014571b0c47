package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/eelab/labdesk/internal/domain/gate"
	"github.com/eelab/labdesk/internal/domain/model"
	apperrors "github.com/eelab/labdesk/internal/errors"
)

const recentAccessLimit = 5

// AdminOverview shows role counts and the most recent denials.
func (h *UIHandlers) AdminOverview(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/admin/" && r.URL.Path != "/admin" {
		h.NotFound(w, r)
		return
	}
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Administration", PageTitle: "Administration", CurrentPage: PageAdmin},
		Fetch: func(ctx context.Context, data map[string]any) error {
			summary, err := h.Roles.Summary(ctx)
			if err != nil {
				return err
			}
			data["Summary"] = summary
			events, err := h.Access.List(ctx, model.AccessEventListOptions{Limit: recentAccessLimit})
			if err != nil {
				return err
			}
			data["Events"] = events
			data["Dropped"] = h.Access.Dropped()
			return nil
		},
	})
}

// AdminRoles lists role assignments with the assignment form.
func (h *UIHandlers) AdminRoles(w http.ResponseWriter, r *http.Request) {
	h.renderRoles(w, r, nil)
}

type roleForm struct {
	UserID  string
	Role    string
	Replace bool
	Errors  map[string]string
	Message string
}

func (h *UIHandlers) renderRoles(w http.ResponseWriter, r *http.Request, form *roleForm) {
	if form == nil {
		form = &roleForm{}
	}
	p := getPageParams(r.URL.Query())
	items, pd, err := paginate(r.Context(), p, h.Roles.List)
	b := h.NewTemplateData(r, PageMeta{Title: "Role assignments", PageTitle: "Role assignments", CurrentPage: PageAdminRoles}).
		With("Form", form).
		With("Roles", roleOptions())
	if err != nil {
		h.logger().ErrorContext(r.Context(), "list role assignments failed", "error", err)
		b.WithError("Unable to load role assignments.")
	} else {
		pd.BasePath = "/admin/roles"
		b.With("Assignments", items).WithPagination(pd)
	}
	if form.Message != "" {
		b.WithError(form.Message)
	}
	h.renderPage(w, r, b.WithFieldErrors(form.Errors).Build())
}

// AdminAssignRole handles POST /admin/roles.
func (h *UIHandlers) AdminAssignRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := &roleForm{
		UserID:  strings.TrimSpace(r.PostFormValue("user_id")),
		Role:    r.PostFormValue("role"),
		Replace: r.PostFormValue("replace") == "on" || r.PostFormValue("replace") == "true",
	}
	req := model.AssignRoleRequest{UserID: form.UserID, Role: form.Role, Replace: form.Replace}
	if u, ok := UserFromContext(r.Context()); ok {
		req.AssignedBy = u.ID
	}

	a, err := h.Roles.Assign(r.Context(), req)
	if err != nil {
		form.Errors, form.Message = roleFormErrors(err)
		if form.Message == "" && len(form.Errors) == 0 {
			h.logger().ErrorContext(r.Context(), "assign role failed", "error", err)
			form.Message = "Unable to save the role assignment. Please try again."
		}
		h.renderRoles(w, r, form)
		return
	}

	h.notifySuccess(w, r, "Assigned "+a.Role.Label()+" to "+a.UserID+".", "/admin/roles")
}

// AdminDeleteRole handles POST /admin/roles/{user}/delete.
func (h *UIHandlers) AdminDeleteRole(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")
	err := h.Roles.Remove(r.Context(), userID)
	switch {
	case err == nil:
		h.notifySuccess(w, r, "Removed role assignment for "+userID+".", "/admin/roles")
	case apperrors.IsNotFound(err):
		h.renderErrorPage(w, r, http.StatusNotFound, "That role assignment no longer exists.")
	default:
		h.logger().ErrorContext(r.Context(), "remove role failed", "error", err)
		h.renderErrorPage(w, r, http.StatusInternalServerError, "Unable to remove the role assignment.")
	}
}

// notifySuccess confirms a mutation: a toast and HX-Redirect for htmx, a flash and 303 otherwise.
func (h *UIHandlers) notifySuccess(w http.ResponseWriter, r *http.Request, msg, to string) {
	n := gate.Notice{Message: msg, Severity: gate.SeveritySuccess}
	if IsHTMX(r) {
		TriggerToast(w, n)
		SetHXRedirect(w, to)
		w.WriteHeader(http.StatusOK)
		return
	}
	setFlash(w, r, h.CookieDomain, n)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// roleFormErrors maps service errors to form feedback.
func roleFormErrors(err error) (map[string]string, string) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return nil, ""
	}
	switch appErr.Code {
	case apperrors.ErrCodeValidation:
		field := appErr.Field
		if field == "" {
			field = validationField(appErr.Message)
		}
		return map[string]string{field: appErr.Message}, ""
	case apperrors.ErrCodeConflict:
		return map[string]string{"user_id": appErr.Message + ". Tick replace to overwrite it."}, ""
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeInternal, apperrors.ErrCodeTimeout, apperrors.ErrCodeCanceled:
		return nil, ""
	default:
		return nil, ""
	}
}

func validationField(msg string) string {
	if strings.HasPrefix(msg, "role") {
		return "role"
	}
	return "user_id"
}

// AdminAccess lists access denials, optionally filtered by policy or user.
func (h *UIHandlers) AdminAccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := getPageParams(q)
	filter := model.AccessEventListOptions{Policy: strings.TrimSpace(q.Get("policy")), UserID: strings.TrimSpace(q.Get("user_id"))}
	fetch := func(ctx context.Context, limit, offset int) ([]*model.AccessEvent, error) {
		opts := filter
		opts.Limit, opts.Offset = limit, offset
		return h.Access.List(ctx, opts)
	}
	items, pd, err := paginate(r.Context(), p, fetch)
	b := h.NewTemplateData(r, PageMeta{Title: "Access log", PageTitle: "Access log", CurrentPage: PageAdminAccess}).
		With("Filter", filter).
		With("Dropped", h.Access.Dropped())
	if err != nil {
		h.logger().ErrorContext(r.Context(), "list access events failed", "error", err)
		b.WithError("Unable to load the access log.")
	} else {
		pd.BasePath = "/admin/access"
		b.With("Events", items).WithPagination(pd)
	}
	h.renderPage(w, r, b.Build())
}
