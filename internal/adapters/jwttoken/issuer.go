// Package jwttoken mints and verifies HS256 bearer tokens that carry a user's lab role.
package jwttoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/ports"
)

var _ ports.TokenIssuer = (*Issuer)(nil)

// ErrInvalidToken is returned by Verify for any token that is malformed, expired,
// signed with another key, or carries an unknown role.
var ErrInvalidToken = errors.New("invalid token")

// MinKeyLength is the minimum signing key size in bytes.
const MinKeyLength = 32

// Config controls token minting.
type Config struct {
	SigningKey []byte
	Issuer     string
	TTL        time.Duration // default 1h when zero
	Now        func() time.Time
}

type claims struct {
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issuer implements ports.TokenIssuer with HMAC-SHA256.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.SigningKey) < MinKeyLength {
		return nil, fmt.Errorf("token signing key must be at least %d bytes", MinKeyLength)
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("token issuer is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{key: append([]byte(nil), cfg.SigningKey...), issuer: cfg.Issuer, ttl: ttl, now: now}, nil
}

// TTL returns the lifetime of minted tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue mints a token for sess. The token never outlives the session.
func (i *Issuer) Issue(sess domainauth.Session) (string, error) {
	if sess.UserID == "" {
		return "", errors.New("session has no user")
	}
	if !sess.Role.Valid() {
		return "", fmt.Errorf("issue token: %w", domainauth.ErrUnknownRole)
	}
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	if !sess.ExpiresAt.IsZero() && sess.ExpiresAt.Before(exp) {
		exp = sess.ExpiresAt.UTC()
	}
	if !exp.After(now) {
		return "", errors.New("session is expired")
	}

	c := claims{
		Role:  sess.Role.String(),
		Name:  sess.DisplayName(),
		Email: sess.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns the user it names.
func (i *Issuer) Verify(token string) (*domainauth.UserInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	role, err := domainauth.ParseRole(c.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return &domainauth.UserInfo{ID: c.Subject, Name: c.Name, Email: c.Email, Role: role}, nil
}
