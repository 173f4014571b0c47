package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: sign-in, sessions and role mapping
//   - database.go: Postgres and Redis
//   - http.go: HTTP server and cookies
//   - gate.go: gate routes, state store and bearer tokens
//   - services.go: service modes, metrics and the access audit
type AppConfig struct {
	// IsDev controls development mode behavior (templates from disk, dev personas).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	Gate  GateConfig  `envPrefix:"GATE_"`
	Token TokenConfig `envPrefix:"TOKEN_"`

	// Services is a comma-separated list of service modes to run.
	Services string `env:"SERVICES" envDefault:"http,audit-reaper"`

	Observability ObservabilityConfig
	Audit         AuditConfig `envPrefix:"AUDIT_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Gate.Sanitize()
	c.Token.Sanitize()
	c.Observability.Sanitize()
	c.Audit.Sanitize()
	c.detectDevMode()
}

// Validate reports configuration that cannot be fixed up by Sanitize.
func (c *AppConfig) Validate() error {
	var errs []error
	if _, err := c.GetEnabledServices(); err != nil {
		errs = append(errs, err)
	}
	if err := c.HTTP.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Auth.Validate(c.IsDev); err != nil {
		errs = append(errs, err)
	}
	if err := c.Gate.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Token.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsAuditReaperEnabled returns true if the access audit reaper is enabled.
func (c *AppConfig) IsAuditReaperEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeAuditReaper]
}
