package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// GateStateBackend selects where previous gate states are kept.
type GateStateBackend string

const (
	GateStateRedis  GateStateBackend = "redis"
	GateStateMemory GateStateBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for GateStateBackend.
func (b *GateStateBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch GateStateBackend(v) {
	case GateStateRedis, GateStateMemory:
		*b = GateStateBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid gate state backend: %q (valid options: redis, memory)", v)
	}
}

// GateConfig configures the role gate.
type GateConfig struct {
	EntryRoute    string `env:"ENTRY_ROUTE"    envDefault:"/"`
	FallbackRoute string `env:"FALLBACK_ROUTE" envDefault:"/dashboard"`

	StateBackend GateStateBackend `env:"STATE_BACKEND" envDefault:"redis"`
	// StateTTL bounds how long a client's previous state is remembered.
	StateTTL time.Duration `env:"STATE_TTL" envDefault:"24h"`
	// SessionTimeout bounds the session lookup; slower lookups render the waiting page.
	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"750ms"`
}

// Sanitize applies defaults to zero or negative durations.
func (g *GateConfig) Sanitize() {
	g.EntryRoute = strings.TrimSpace(g.EntryRoute)
	g.FallbackRoute = strings.TrimSpace(g.FallbackRoute)
	if g.StateTTL <= 0 {
		g.StateTTL = 24 * time.Hour
	}
	if g.SessionTimeout <= 0 {
		g.SessionTimeout = 750 * time.Millisecond
	}
}

// Validate requires both routes to be local absolute paths.
func (g *GateConfig) Validate() error {
	for name, route := range map[string]string{
		"GATE_ENTRY_ROUTE":    g.EntryRoute,
		"GATE_FALLBACK_ROUTE": g.FallbackRoute,
	} {
		if !strings.HasPrefix(route, "/") || strings.HasPrefix(route, "//") {
			return fmt.Errorf("%s %q must be a local path starting with /", name, route)
		}
	}
	return nil
}

// TokenConfig configures bearer tokens for API clients. An empty signing key disables them.
type TokenConfig struct {
	SigningKey string        `env:"SIGNING_KEY"`
	TTL        time.Duration `env:"TTL"         envDefault:"1h"`
	Issuer     string        `env:"ISSUER"      envDefault:"labdesk"`
}

// minTokenKeyLength mirrors the signer's HS256 key floor.
const minTokenKeyLength = 32

// Enabled reports whether bearer tokens are configured.
func (t *TokenConfig) Enabled() bool { return t.SigningKey != "" }

// Sanitize trims the issuer and applies the default TTL.
func (t *TokenConfig) Sanitize() {
	t.Issuer = strings.TrimSpace(t.Issuer)
	if t.TTL <= 0 {
		t.TTL = time.Hour
	}
}

// Validate checks the key length when tokens are enabled.
func (t *TokenConfig) Validate() error {
	if !t.Enabled() {
		return nil
	}
	if len(t.SigningKey) < minTokenKeyLength {
		return fmt.Errorf("TOKEN_SIGNING_KEY must be at least %d bytes", minTokenKeyLength)
	}
	if t.Issuer == "" {
		return errors.New("TOKEN_ISSUER is required when tokens are enabled")
	}
	return nil
}
