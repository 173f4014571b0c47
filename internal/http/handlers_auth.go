package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/service"
)

const (
	oauthStateCookie   = "oauth_state"
	oauthNonceCookie   = "oauth_nonce"
	postLoginCookie    = "post_login_redirect"
	oauthCookieMaxAge  = 600
	defaultPostLoginTo = "/dashboard"
)

// AuthServiceInterface defines the auth operations the handlers need.
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, redirectURL, loginHint string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*domainauth.Session, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

var _ AuthServiceInterface = (*service.AuthService)(nil)

// TokenIssuer mints bearer tokens for a session.
type TokenIssuer interface {
	Issue(sess domainauth.Session) (string, error)
	TTL() time.Duration
}

// GateForgetter drops a client's remembered gate states.
type GateForgetter interface {
	ForgetClient(r *http.Request)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	Tokens       TokenIssuer   // optional; enables POST /api/auth/token
	Gate         GateForgetter // optional
	UI           *UIHandlers   // optional; renders the no-role page
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login handles GET /auth/login?redirect_uri=<path>&login_hint=<hint>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	redirectURI := r.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		redirectURI = defaultPostLoginTo
	}
	redirectURI = safeRedirectPath(redirectURI)

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI, strings.TrimSpace(r.URL.Query().Get("login_hint")))
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin login failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed", Err: errors.New("unable to start sign-in")})
		return
	}

	h.setTempCookie(w, r, oauthStateCookie, result.State)
	h.setTempCookie(w, r, oauthNonceCookie, result.Nonce)
	h.setTempCookie(w, r, postLoginCookie, redirectURI)
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback handles GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_code", Err: errors.New("authorization code is required")})
		return
	}
	if state == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_state", Err: errors.New("state parameter is required")})
		return
	}
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_state", Err: errors.New("invalid or missing state parameter")})
		return
	}
	nonceCookie, err := r.Cookie(oauthNonceCookie)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_nonce", Err: errors.New("missing nonce parameter")})
		return
	}

	sess, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	clearCookie(w, r, h.CookieDomain, oauthStateCookie)
	clearCookie(w, r, h.CookieDomain, oauthNonceCookie)
	if errors.Is(err, service.ErrNoRole) {
		h.logger().InfoContext(r.Context(), "login rejected: no role")
		if h.UI != nil {
			h.UI.renderErrorPage(w, r, http.StatusForbidden,
				"Your account has no lab role yet. Ask a department administrator to assign one.")
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "no_role", Err: err})
		return
	}
	if err != nil {
		h.logger().ErrorContext(r.Context(), "complete login failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_completion_failed", Err: errors.New("unable to complete sign-in")})
		return
	}

	h.setSessionCookie(w, r, *sess)
	if h.Gate != nil {
		h.Gate.ForgetClient(r)
	}
	http.Redirect(w, r, h.postLoginRedirect(w, r), http.StatusFound)
}

// Logout handles POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), c.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}
	clearCookie(w, r, h.CookieDomain, sessionCookieName)
	if h.Gate != nil {
		h.Gate.ForgetClient(r)
	}

	redirectURI := r.FormValue("redirect_uri")
	if redirectURI == "" {
		redirectURI = defaultPostLoginTo
	}
	u := url.URL{Path: "/auth/signed-out"}
	q := url.Values{}
	q.Set("redirect_uri", safeRedirectPath(redirectURI))
	u.RawQuery = q.Encode()
	signedOutURL := u.String()

	isAJAX := strings.Contains(r.Header.Get("Accept"), "application/json") ||
		IsHTMX(r) ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
	if isAJAX {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": signedOutURL,
		})
		return
	}
	http.Redirect(w, r, signedOutURL, http.StatusFound)
}

// userJSON is the public shape of a user.
type userJSON struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email,omitempty"`
	Role  domainauth.Role `json:"role"`
}

func toUserJSON(u *domainauth.UserInfo) userJSON {
	return userJSON{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Status handles GET /api/auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	sess, err := h.Svc.GetSession(r.Context(), c.Value)
	if err != nil {
		clearCookie(w, r, h.CookieDomain, sessionCookieName)
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          toUserJSON(sess.UserInfo()),
		"expires_at":    sess.ExpiresAt,
	})
}

// Token handles POST /api/auth/token. It needs a cookie session; bearer
// tokens cannot mint further tokens.
func (h *AuthHandlers) Token(w http.ResponseWriter, r *http.Request) {
	if h.Tokens == nil {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found"})
		return
	}
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "session_required",
			Err:     errors.New("a browser session is required to issue tokens"),
		})
		return
	}
	token, err := h.Tokens.Issue(*sess)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "issue token failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "token_failed", Err: errors.New("unable to issue token")})
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.Tokens.TTL().Seconds()),
	})
}

func (h *AuthHandlers) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   oauthCookieMaxAge,
	})
}

// setSessionCookie writes the session cookie based on the session's expiry.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// postLoginRedirect returns the stored post-login target and clears its cookie.
func (h *AuthHandlers) postLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(postLoginCookie)
	if err != nil {
		return defaultPostLoginTo
	}
	clearCookie(w, r, h.CookieDomain, postLoginCookie)
	target := safeRedirectPath(c.Value)
	if target == "/" {
		return defaultPostLoginTo
	}
	return target
}
