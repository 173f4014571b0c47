package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eelab/labdesk/config"
	"github.com/eelab/labdesk/internal/adapters/authroles"
	"github.com/eelab/labdesk/internal/adapters/devauth"
	"github.com/eelab/labdesk/internal/adapters/oidc"
	"github.com/eelab/labdesk/internal/ports"
	"github.com/eelab/labdesk/internal/service"
)

// AuthConfig contains configuration for the auth service.
type AuthConfig struct {
	Auth      config.AuthConfig
	Sessions  ports.SessionStore             // required
	Overrides ports.RoleAssignmentRepository // optional
	Logger    *slog.Logger
}

// AuthBundle is the built auth service plus the dev persona names shown on the sign-in page.
type AuthBundle struct {
	Service  *service.AuthService
	Personas []string
}

// BuildAuthService creates the auth service for the configured mode.
func BuildAuthService(ctx context.Context, cfg AuthConfig) (AuthBundle, error) {
	if cfg.Sessions == nil {
		return AuthBundle{}, errors.New("auth: session store is required")
	}
	groups := cfg.Auth.Groups
	mapper := authroles.GroupRoleMapper{
		AdminGroup:      groups.Admin,
		HoDGroup:        groups.HoD,
		LecturerGroup:   groups.Lecturer,
		StudentGroup:    groups.Student,
		AcceptRoleNames: groups.AcceptRoleNames,
	}

	var (
		provider ports.AuthProvider
		personas []string
	)
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		prov, err := devauth.NewProvider(devauth.Config{
			Personas: DevPersonas(groups, cfg.Auth.DevAuth.EmailDomain),
			Default:  cfg.Auth.DevAuth.Default,
		})
		if err != nil {
			return AuthBundle{}, fmt.Errorf("dev auth provider: %w", err)
		}
		provider, personas = prov, prov.PersonaNames()
		if cfg.Logger != nil {
			cfg.Logger.WarnContext(ctx, "dev auth enabled; do not use in production", "personas", personas)
		}
	case config.AuthModeOAuth:
		oauth := cfg.Auth.OAuth
		paths := oidc.DefaultClaimPaths
		if oauth.GroupsClaim != "" {
			paths.Groups = oauth.GroupsClaim
		}
		if oauth.UserIDClaim != "" {
			paths.UserID = oauth.UserIDClaim
		}
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Scope:        oauth.Scope,
			DiscoveryURL: oauth.DiscoveryURL,
			ClaimPaths:   paths,
		})
		if err != nil {
			return AuthBundle{}, fmt.Errorf("oidc provider: %w", err)
		}
		provider = prov
	default:
		return AuthBundle{}, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}

	svc := service.NewAuthService(service.AuthServiceOptions{
		Provider: provider,
		Sessions: service.SessionOptions{Store: cfg.Sessions, TTL: cfg.Auth.SessionTTL},
		Roles: service.RoleResolution{
			Mapper:    mapper,
			Overrides: cfg.Overrides,
			Default:   cfg.Auth.DefaultRole,
		},
	})
	return AuthBundle{Service: svc, Personas: personas}, nil
}

// DevPersonas returns one persona per role, each a member of that role's group,
// plus "guest" who belongs to no lab group.
func DevPersonas(groups config.RoleGroupsConfig, emailDomain string) []devauth.Persona {
	domain := strings.TrimPrefix(strings.TrimSpace(emailDomain), "@")
	if domain == "" {
		domain = "example.edu"
	}
	mk := func(name, first, last, group string) devauth.Persona {
		p := devauth.Persona{
			Name:      name,
			UserID:    "dev-" + name,
			FirstName: first,
			LastName:  last,
			Email:     name + "@" + domain,
		}
		if group != "" {
			p.Groups = []string{group}
		}
		return p
	}
	return []devauth.Persona{
		mk("admin", "Ada", "Admin", groups.Admin),
		mk("hod", "Hedy", "Head", groups.HoD),
		mk("lecturer", "Lin", "Lecturer", groups.Lecturer),
		mk("student", "Sam", "Student", groups.Student),
		mk("guest", "Gus", "Guest", ""),
	}
}
