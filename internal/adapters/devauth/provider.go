// Package devauth provides a config-driven AuthProvider for local development.
// It offers one persona per lab role so the role gate can be exercised without an IdP.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/ports"
)

var _ ports.AuthProvider = (*Provider)(nil)

// Persona is a named identity the dev login can impersonate.
type Persona struct {
	Name      string
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Groups    []string
}

// Config controls the dev auth provider. Default must name one of Personas.
type Config struct {
	Personas        []Persona
	Default         string
	SessionDuration time.Duration // default 8h when zero
}

// Provider implements ports.AuthProvider for local development.
// Begin redirects straight back to our callback with the persona name as the code;
// Exchange returns that persona's identity.
type Provider struct {
	personas        map[string]Persona
	defaultPersona  string
	sessionDuration time.Duration
	now             func() time.Time
}

// NewProvider validates cfg and builds a Provider.
func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Personas) == 0 {
		return nil, errors.New("dev auth: at least one persona is required")
	}
	personas := make(map[string]Persona, len(cfg.Personas))
	for _, p := range cfg.Personas {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		switch {
		case name == "":
			return nil, errors.New("dev auth: persona name is required")
		case p.UserID == "":
			return nil, fmt.Errorf("dev auth: persona %q: UserID is required", name)
		case p.Email == "":
			return nil, fmt.Errorf("dev auth: persona %q: Email is required", name)
		}
		p.Name = name
		p.Groups = append([]string(nil), p.Groups...)
		personas[name] = p
	}
	def := strings.ToLower(strings.TrimSpace(cfg.Default))
	if def == "" {
		def = strings.ToLower(strings.TrimSpace(cfg.Personas[0].Name))
	}
	if _, ok := personas[def]; !ok {
		return nil, fmt.Errorf("dev auth: default persona %q is not defined", def)
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	return &Provider{personas: personas, defaultPersona: def, sessionDuration: dur, now: time.Now}, nil
}

// PersonaNames lists configured personas in sorted order.
func (p *Provider) PersonaNames() []string {
	names := make([]string, 0, len(p.personas))
	for n := range p.personas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Begin returns a local callback URL carrying the chosen persona as the code.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	persona := p.resolve(in.LoginHint)
	q := url.Values{"code": {persona}, "state": {state}}
	return "/auth/callback?" + q.Encode(), state, nonce, nil
}

// Exchange returns the identity of the persona named by the code.
func (p *Provider) Exchange(_ context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	name := strings.ToLower(strings.TrimSpace(in.Code))
	persona, ok := p.personas[name]
	if !ok {
		return domainauth.Identity{}, fmt.Errorf("dev auth: unknown persona %q", in.Code)
	}
	return domainauth.Identity{
		UserID:    persona.UserID,
		FirstName: persona.FirstName,
		LastName:  persona.LastName,
		Email:     persona.Email,
		Groups:    append([]string(nil), persona.Groups...),
		ExpiresAt: p.now().Add(p.sessionDuration),
	}, nil
}

func (p *Provider) resolve(hint string) string {
	name := strings.ToLower(strings.TrimSpace(hint))
	if _, ok := p.personas[name]; ok {
		return name
	}
	return p.defaultPersona
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, (n*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
