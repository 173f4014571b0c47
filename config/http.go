package config

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the externally visible URL of the application.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for session and gate cookies.
	// Leave empty to use the request host.
	CookieDomain string `env:"COOKIE_DOMAIN" envDefault:""`

	// CompressionEnabled enables gzip compression for text-based responses.
	CompressionEnabled bool `env:"HTTP_COMPRESSION" envDefault:"false"`

	// CompressionLevel is the gzip compression level (1-9).
	CompressionLevel int `env:"HTTP_COMPRESSION_LEVEL" envDefault:"6"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.CompressionLevel < 1 {
		h.CompressionLevel = 1
	}
	if h.CompressionLevel > 9 {
		h.CompressionLevel = 9
	}
	h.CookieDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h.CookieDomain), "."))
	h.BaseURL = strings.TrimRight(strings.TrimSpace(h.BaseURL), "/")
}

// Validate rejects a base URL without scheme or host and a cookie domain
// that is a public suffix (browsers would drop such cookies).
func (h *HTTPConfig) Validate() error {
	u, err := url.Parse(h.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BASE_URL %q must be an absolute URL", h.BaseURL)
	}
	if h.CookieDomain == "" {
		return nil
	}
	if strings.ContainsAny(h.CookieDomain, ":/") {
		return fmt.Errorf("COOKIE_DOMAIN %q must be a bare host name", h.CookieDomain)
	}
	suffix, _ := publicsuffix.PublicSuffix(h.CookieDomain)
	if suffix == h.CookieDomain {
		return fmt.Errorf("COOKIE_DOMAIN %q is a public suffix", h.CookieDomain)
	}
	host := u.Hostname()
	if host != h.CookieDomain && !strings.HasSuffix(host, "."+h.CookieDomain) {
		return fmt.Errorf("COOKIE_DOMAIN %q does not cover BASE_URL host %q", h.CookieDomain, host)
	}
	return nil
}
