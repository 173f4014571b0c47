package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func csrfHandler() http.Handler {
	return CSRFProtection("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetCSRFToken(r)))
	}))
}

func TestCSRF_GetIssuesToken(t *testing.T) {
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/roles", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	if assert.Len(t, cookies, 1) {
		assert.Equal(t, csrfCookieName, cookies[0].Name)
		assert.Equal(t, cookies[0].Value, rec.Body.String())
	}
}

func TestCSRF_PostValidation(t *testing.T) {
	const token = "tok-123"
	tests := []struct {
		name   string
		header string
		form   string
		want   int
	}{
		{"header", token, "", http.StatusOK},
		{"form", "", token, http.StatusOK},
		{"wrong header", "nope", "", http.StatusForbidden},
		{"missing", "", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := url.Values{"user_id": {"jdoe"}}
			if tt.form != "" {
				body.Set(csrfFormField, tt.form)
			}
			req := httptest.NewRequest(http.MethodPost, "/admin/roles", strings.NewReader(body.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			rec := httptest.NewRecorder()
			csrfHandler().ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
