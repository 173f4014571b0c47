package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses dev personas (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// GroupsClaim is a JMESPath expression locating group names in the token claims.
	GroupsClaim string `env:"GROUPS_CLAIM"`
	UserIDClaim string `env:"USER_ID_CLAIM"`
}

// DevAuthConfig controls the mock login. Personas are derived from the role groups.
type DevAuthConfig struct {
	Default     string `env:"DEFAULT"      envDefault:"admin"`
	EmailDomain string `env:"EMAIL_DOMAIN" envDefault:"example.edu"`
}

// RoleGroupsConfig names the IdP group granting each role.
type RoleGroupsConfig struct {
	Admin    string `env:"ADMIN_GROUP"    envDefault:"lab-admins"`
	HoD      string `env:"HOD_GROUP"      envDefault:"lab-hods"`
	Lecturer string `env:"LECTURER_GROUP" envDefault:"lab-lecturers"`
	Student  string `env:"STUDENT_GROUP"  envDefault:"lab-students"`
	// AcceptRoleNames also maps groups spelled as role names ("lecturer").
	AcceptRoleNames bool `env:"ACCEPT_ROLE_NAMES" envDefault:"false"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OIDC_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	Groups RoleGroupsConfig

	// DefaultRole is granted when neither an assignment nor a group matches.
	// Empty rejects such users at sign-in.
	DefaultRole domainauth.Role `env:"DEFAULT_ROLE"`

	// SessionTTL caps session lifetime; zero keeps the IdP token expiry.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"8h"`
}

// Validate checks mode-specific requirements.
func (a *AuthConfig) Validate(isDev bool) error {
	switch a.Mode {
	case AuthModeOAuth:
		var missing []string
		if a.OAuth.DiscoveryURL == "" {
			missing = append(missing, "OIDC_DISCOVERY_URL")
		}
		if a.OAuth.ClientID == "" {
			missing = append(missing, "OIDC_CLIENT_ID")
		}
		if a.OAuth.ClientSecret == "" {
			missing = append(missing, "OIDC_CLIENT_SECRET")
		}
		if len(missing) > 0 {
			return fmt.Errorf("oauth mode requires %s", strings.Join(missing, ", "))
		}
	case AuthModeMock:
		if !isDev {
			return errors.New("AUTH_MODE=mock is only allowed with DEV=true")
		}
	default:
		return fmt.Errorf("invalid AuthMode: %q", a.Mode)
	}
	if a.SessionTTL < 0 {
		return errors.New("SESSION_TTL must not be negative")
	}
	return nil
}
