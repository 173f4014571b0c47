package httpx

import (
	"context"
	"net/http"
	"net/url"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
)

// loginURL builds the sign-in link, optionally with a dev persona hint.
func loginURL(redirect, hint string) string {
	q := url.Values{}
	q.Set("redirect_uri", safeRedirectPath(redirect))
	if hint != "" {
		q.Set("login_hint", hint)
	}
	return "/auth/login?" + q.Encode()
}

type personaLink struct {
	Name string
	URL  string
}

// Home is the public entry page. Signed-in users go straight to the dashboard.
func (h *UIHandlers) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.NotFound(w, r)
		return
	}
	redirect := r.URL.Query().Get("redirect_uri")
	if redirect == "" {
		redirect = "/dashboard"
	}
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Welcome", PageTitle: "Electronics Lab", CurrentPage: PageHome},
		Fetch: func(_ context.Context, data map[string]any) error {
			data["LoginURL"] = loginURL(redirect, "")
			if len(h.DevPersonas) > 0 {
				links := make([]personaLink, 0, len(h.DevPersonas))
				for _, p := range h.DevPersonas {
					links = append(links, personaLink{Name: p, URL: loginURL(redirect, p)})
				}
				data["Personas"] = links
			}
			return nil
		},
	})
}

// SignedOut renders the signed-out page with a sign-in button.
func (h *UIHandlers) SignedOut(w http.ResponseWriter, r *http.Request) {
	redirect := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Signed out", PageTitle: "Signed out", CurrentPage: PageSignedOut},
		Fetch: func(_ context.Context, data map[string]any) error {
			data["LoginURL"] = loginURL(redirect, "")
			return nil
		},
	})
}

// Dashboard is open to every role and points at the role's home.
func (h *UIHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.Page(w, r, PageSpec{Meta: PageMeta{Title: "Dashboard", PageTitle: "Dashboard", CurrentPage: PageDashboard}})
}

// Department shows the role distribution to department heads and admins.
func (h *UIHandlers) Department(w http.ResponseWriter, r *http.Request) {
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Department", PageTitle: "Department overview", CurrentPage: PageDepartment},
		Fetch: func(ctx context.Context, data map[string]any) error {
			if h.Roles == nil {
				return nil
			}
			summary, err := h.Roles.Summary(ctx)
			if err != nil {
				return err
			}
			data["Summary"] = summary
			return nil
		},
	})
}

// Lecturer is the lecturer home.
func (h *UIHandlers) Lecturer(w http.ResponseWriter, r *http.Request) {
	h.Page(w, r, PageSpec{Meta: PageMeta{Title: "Teaching", PageTitle: "Teaching", CurrentPage: PageLecturer}})
}

// Student is the student home.
func (h *UIHandlers) Student(w http.ResponseWriter, r *http.Request) {
	h.Page(w, r, PageSpec{Meta: PageMeta{Title: "My lab", PageTitle: "My lab", CurrentPage: PageStudent}})
}

// roleOptions feeds the role select of the assignment form.
func roleOptions() []domainauth.Role { return domainauth.AllRoles() }
