package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server and its access audit writer.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeAuditReaper prunes access events past retention.
	ServiceModeAuditReaper ServiceMode = "audit-reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeAuditReaper}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)
	if strings.TrimSpace(servicesStr) == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}
		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeAuditReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, audit-reaper)", serviceName)
		}
	}
	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	return services, nil
}

// ObservabilityConfig controls the Prometheus endpoint.
type ObservabilityConfig struct {
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath    string `env:"METRICS_PATH"    envDefault:"/metrics"`
}

// Sanitize normalises the metrics path.
func (c *ObservabilityConfig) Sanitize() {
	c.MetricsPath = strings.TrimSpace(c.MetricsPath)
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		c.MetricsPath = "/" + c.MetricsPath
	}
}

// AuditConfig tunes the access audit writer and its retention.
type AuditConfig struct {
	QueueSize    int           `env:"QUEUE_SIZE"    envDefault:"256"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"2s"`
	Retention    time.Duration `env:"RETENTION"     envDefault:"720h"`
	ReapInterval time.Duration `env:"REAP_INTERVAL" envDefault:"1h"`
	ReapBatch    int           `env:"REAP_BATCH"    envDefault:"1000"`
}

// Sanitize applies lower bounds.
func (c *AuditConfig) Sanitize() {
	if c.QueueSize < 1 {
		c.QueueSize = 1
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Second
	}
	if c.Retention <= 0 {
		c.Retention = 30 * 24 * time.Hour
	}
	if c.ReapInterval < time.Minute {
		c.ReapInterval = time.Minute
	}
	if c.ReapBatch < 1 {
		c.ReapBatch = 1000
	}
}
