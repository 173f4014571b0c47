package httpx

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-Csrf-Token"
	csrfFormField  = "csrf_token"
	csrfTokenBytes = 32
	csrfMaxAge     = 12 * 60 * 60
)

type csrfTokenKey struct{}

// CSRFProtection guards state-changing requests with a double-submit cookie.
// The token may arrive in the X-Csrf-Token header (htmx) or the csrf_token form field.
func CSRFProtection(cookieDomain string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(csrfCookieName); err == nil {
				token = c.Value
			}
			if token == "" {
				b := make([]byte, csrfTokenBytes)
				if _, err := rand.Read(b); err != nil {
					http.Error(w, "unable to generate CSRF token", http.StatusInternalServerError)
					return
				}
				token = base64.URLEncoding.EncodeToString(b)
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					Domain:   cookieDomain,
					HttpOnly: false, // read by htmx config in the layout
					Secure:   isSecureRequest(r),
					SameSite: http.SameSiteStrictMode,
					MaxAge:   csrfMaxAge,
				})
			}
			r = r.WithContext(context.WithValue(r.Context(), csrfTokenKey{}, token))

			if requiresCSRFValidation(r.Method) && !validCSRFToken(r, token) {
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetCSRFToken returns the token placed by CSRFProtection, or "".
func GetCSRFToken(r *http.Request) string {
	s, _ := r.Context().Value(csrfTokenKey{}).(string)
	return s
}

func requiresCSRFValidation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

func validCSRFToken(r *http.Request, cookieToken string) bool {
	if h := r.Header.Get(csrfHeaderName); h != "" {
		return subtle.ConstantTimeCompare([]byte(h), []byte(cookieToken)) == 1
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") && !strings.HasPrefix(ct, "multipart/form-data") {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	v := r.PostFormValue(csrfFormField)
	return v != "" && subtle.ConstantTimeCompare([]byte(v), []byte(cookieToken)) == 1
}
