package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "both services with spaces",
			input:    " http , audit-reaper ",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true, ServiceModeAuditReaper: true},
		},
		{
			name:     "duplicate services",
			input:    "http,http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{name: "empty string", input: "", expectError: true},
		{name: "only commas", input: ",,", expectError: true},
		{name: "unknown service", input: "http,scheduler", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	cfg := AppConfig{Services: "audit-reaper"}
	assert.False(t, cfg.IsHTTPServerEnabled())
	assert.True(t, cfg.IsAuditReaperEnabled())

	cfg.Services = "bogus"
	assert.False(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsAuditReaperEnabled())
}

func TestValidServiceModes(t *testing.T) {
	for _, m := range ValidServiceModes() {
		_, err := ParseServices(string(m))
		assert.NoError(t, err, m)
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "OAuth")
	t.Setenv("OIDC_CLIENT_ID", "labdesk")
	t.Setenv("OIDC_CLIENT_SECRET", "super-secret")
	t.Setenv("OIDC_REDIRECT_URL", "https://lab.example.edu/auth/callback")
	t.Setenv("OIDC_DISCOVERY_URL", "https://login.example.edu/.well-known/openid-configuration")
	t.Setenv("OIDC_GROUPS_CLAIM", "realm_access.roles")
	t.Setenv("ADMIN_GROUP", "cn=lab-admins,ou=groups,dc=example,dc=edu")
	t.Setenv("HOD_GROUP", "hods")
	t.Setenv("DEFAULT_ROLE", "student")
	t.Setenv("SESSION_TTL", "2h")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))

	expected := AuthConfig{
		Mode: AuthModeOAuth,
		OAuth: OAuthConfig{
			ClientID:     "labdesk",
			ClientSecret: "super-secret",
			RedirectURL:  "https://lab.example.edu/auth/callback",
			Scope:        "openid profile email groups",
			DiscoveryURL: "https://login.example.edu/.well-known/openid-configuration",
			GroupsClaim:  "realm_access.roles",
		},
		DevAuth: DevAuthConfig{Default: "admin", EmailDomain: "example.edu"},
		Groups: RoleGroupsConfig{
			Admin:    "cn=lab-admins,ou=groups,dc=example,dc=edu",
			HoD:      "hods",
			Lecturer: "lab-lecturers",
			Student:  "lab-students",
		},
		DefaultRole: domainauth.RoleStudent,
		SessionTTL:  2 * time.Hour,
	}
	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
	assert.NoError(t, cfg.Auth.Validate(false))
}

func TestAppConfig_ParseRejectsBadEnums(t *testing.T) {
	t.Run("auth mode", func(t *testing.T) {
		t.Setenv("AUTH_MODE", "saml")
		var cfg AppConfig
		assert.Error(t, env.Parse(&cfg))
	})
	t.Run("default role", func(t *testing.T) {
		t.Setenv("DEFAULT_ROLE", "dean")
		var cfg AppConfig
		assert.Error(t, env.Parse(&cfg))
	})
	t.Run("gate backend", func(t *testing.T) {
		t.Setenv("GATE_STATE_BACKEND", "etcd")
		var cfg AppConfig
		assert.Error(t, env.Parse(&cfg))
	})
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "/", cfg.Gate.EntryRoute)
	assert.Equal(t, "/dashboard", cfg.Gate.FallbackRoute)
	assert.Equal(t, GateStateRedis, cfg.Gate.StateBackend)
	assert.Equal(t, 750*time.Millisecond, cfg.Gate.SessionTimeout)
	assert.False(t, cfg.Token.Enabled())
	assert.Equal(t, "/metrics", cfg.Observability.MetricsPath)
	assert.Equal(t, 256, cfg.Audit.QueueSize)
	assert.Equal(t, domainauth.RoleUnknown, cfg.Auth.DefaultRole)
}

func TestAuthConfig_Validate(t *testing.T) {
	oauth := AuthConfig{Mode: AuthModeOAuth}
	assert.ErrorContains(t, oauth.Validate(false), "OIDC_DISCOVERY_URL, OIDC_CLIENT_ID, OIDC_CLIENT_SECRET")

	mock := AuthConfig{Mode: AuthModeMock}
	assert.Error(t, mock.Validate(false))
	assert.NoError(t, mock.Validate(true))
}

func TestHTTPConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		domain  string
		wantErr bool
	}{
		{"no cookie domain", "http://localhost:8080", "", false},
		{"parent domain", "https://lab.ee.example.edu", ".Example.EDU", false},
		{"exact host", "https://lab.example.edu", "lab.example.edu", false},
		{"public suffix", "https://lab.example.co.uk", "co.uk", true},
		{"foreign domain", "https://lab.example.edu", "other.edu", true},
		{"relative base url", "/lab", "", true},
		{"port in domain", "https://lab.example.edu", "example.edu:443", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := HTTPConfig{BaseURL: tt.base, CookieDomain: tt.domain, CompressionLevel: 6}
			h.Sanitize()
			err := h.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHTTPConfig_SanitizeClampsCompression(t *testing.T) {
	h := HTTPConfig{CompressionLevel: 0}
	h.Sanitize()
	assert.Equal(t, 1, h.CompressionLevel)
	h.CompressionLevel = 12
	h.Sanitize()
	assert.Equal(t, 9, h.CompressionLevel)
}

func TestGateConfig_Validate(t *testing.T) {
	g := GateConfig{EntryRoute: "/", FallbackRoute: "/dashboard"}
	assert.NoError(t, g.Validate())

	g.FallbackRoute = "//evil.example"
	assert.Error(t, g.Validate())

	g.FallbackRoute = "dashboard"
	assert.Error(t, g.Validate())
}

func TestTokenConfig_Validate(t *testing.T) {
	tok := TokenConfig{}
	assert.NoError(t, tok.Validate())

	tok.SigningKey = "short"
	tok.Issuer = "labdesk"
	assert.ErrorContains(t, tok.Validate(), "at least 32 bytes")

	tok.SigningKey = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, tok.Validate())
}

func TestAppConfig_DetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := AppConfig{}
	cfg.Sanitize()
	assert.True(t, cfg.IsDev)
}

func TestAuditConfig_Sanitize(t *testing.T) {
	c := AuditConfig{ReapInterval: time.Second}
	c.Sanitize()
	assert.Equal(t, 1, c.QueueSize)
	assert.Equal(t, time.Minute, c.ReapInterval)
	assert.Equal(t, 1000, c.ReapBatch)
	assert.Equal(t, 30*24*time.Hour, c.Retention)
}
