package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/eelab/labdesk/config"
	"github.com/eelab/labdesk/internal/adapters/jwttoken"
	"github.com/eelab/labdesk/internal/adapters/memstate"
	"github.com/eelab/labdesk/internal/adapters/reaper"
	redisadapter "github.com/eelab/labdesk/internal/adapters/redis"
	"github.com/eelab/labdesk/internal/data"
	httpx "github.com/eelab/labdesk/internal/http"
	"github.com/eelab/labdesk/internal/observability/metrics"
	"github.com/eelab/labdesk/internal/ports"
	"github.com/eelab/labdesk/internal/service"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// ServiceDeps holds shared infrastructure.
type ServiceDeps struct {
	Config *config.AppConfig
	DB     *sql.DB
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// Services is the assembled application.
type Services struct {
	Auth    AuthBundle
	Roles   *service.RoleService
	Auditor *service.AccessAuditor
	Reaper  *reaper.Runner
	Metrics *metrics.Metrics
	States  ports.GateStateStore
	Tokens  *jwttoken.Issuer
}

// NewServices wires repositories, stores and services from deps.
func NewServices(ctx context.Context, deps ServiceDeps) (*Services, error) {
	cfg := deps.Config
	m := metrics.New()

	roleRepo := data.NewRoleAssignmentRepo(deps.DB)
	eventRepo := data.NewAccessEventRepo(deps.DB)

	auth, err := BuildAuthService(ctx, AuthConfig{
		Auth:      cfg.Auth,
		Sessions:  redisadapter.NewSessionStore(deps.Redis),
		Overrides: roleRepo,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	auditor, err := service.NewAccessAuditor(service.AccessAuditorOptions{
		Repo:   eventRepo,
		Logger: deps.Logger,
		Config: service.AccessAuditorConfig{
			QueueSize:    cfg.Audit.QueueSize,
			WriteTimeout: cfg.Audit.WriteTimeout,
			Metrics:      m,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("access auditor: %w", err)
	}

	s := &Services{
		Auth:    auth,
		Roles:   service.NewRoleService(service.RoleServiceOptions{Repo: roleRepo}),
		Auditor: auditor,
		Metrics: m,
		States:  newGateStateStore(cfg.Gate, deps.Redis),
	}

	if cfg.IsAuditReaperEnabled() {
		s.Reaper, err = reaper.NewRunner(reaper.RunnerOptions{
			Repo:   eventRepo,
			Config: cfg.Audit,
			Logger: deps.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("audit reaper: %w", err)
		}
	}

	if cfg.Token.Enabled() {
		s.Tokens, err = jwttoken.NewIssuer(jwttoken.Config{
			SigningKey: []byte(cfg.Token.SigningKey),
			Issuer:     cfg.Token.Issuer,
			TTL:        cfg.Token.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("token issuer: %w", err)
		}
	}
	return s, nil
}

//nolint:ireturn // backend is chosen by configuration.
func newGateStateStore(cfg config.GateConfig, client redis.UniversalClient) ports.GateStateStore {
	if cfg.StateBackend == config.GateStateMemory || client == nil {
		return memstate.New(cfg.StateTTL)
	}
	return redisadapter.NewGateStateStore(client, cfg.StateTTL)
}

// RouterServices maps the assembled services onto the HTTP router's inputs.
func (s *Services) RouterServices(cfg *config.AppConfig, logger *slog.Logger) httpx.RouterServices {
	rs := httpx.RouterServices{
		Auth:             s.Auth.Service,
		Roles:            s.Roles,
		Access:           s.Auditor,
		GateStates:       s.States,
		Audit:            s.Auditor,
		Policies:         httpx.DefaultPolicies(cfg.Gate.EntryRoute, cfg.Gate.FallbackRoute),
		IsDev:            cfg.IsDev,
		DevPersonas:      s.Auth.Personas,
		CookieDomain:     cfg.HTTP.CookieDomain,
		SessionTimeout:   cfg.Gate.SessionTimeout,
		Compression:      cfg.HTTP.CompressionEnabled,
		CompressionLevel: cfg.HTTP.CompressionLevel,
		Logger:           logger,
	}
	if cfg.Observability.MetricsEnabled {
		rs.Metrics = s.Metrics
		rs.MetricsPath = cfg.Observability.MetricsPath
	}
	if s.Tokens != nil {
		rs.Tokens = s.Tokens
	}
	return rs
}

// Run starts every enabled service under one errgroup and returns when ctx is
// cancelled or any of them fails.
func (s *Services) Run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	if cfg.IsHTTPServerEnabled() {
		srv, err := NewHTTPServer(cfg, s.RouterServices(cfg, logger))
		if err != nil {
			return err
		}
		g.Go(func() error { return s.Auditor.Run(gctx) })
		g.Go(func() error { return ServeHTTP(gctx, srv, logger) })
	}
	if s.Reaper != nil {
		g.Go(func() error { return s.Reaper.Run(gctx) })
	}
	return g.Wait()
}
