// Package reaper provides adapters for running the access log reaper.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eelab/labdesk/config"
	"github.com/eelab/labdesk/internal/data"
	"github.com/eelab/labdesk/internal/ports"
	"github.com/eelab/labdesk/internal/service"
)

// Runner provides a simple adapter to run the audit reaper loop.
type Runner struct {
	reaper *service.AuditReaper
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.AuditConfig
	Logger *slog.Logger

	// Repo overrides the Postgres repository built from DB.
	Repo ports.AccessEventRepository
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	repo := opts.Repo
	if repo == nil {
		repo = data.NewAccessEventRepo(opts.DB)
	}
	r, err := service.NewAuditReaper(service.AuditReaperOptions{
		Repo: repo,
		Config: service.AuditRetention{
			MaxAge:    opts.Config.Retention,
			Interval:  opts.Config.ReapInterval,
			BatchSize: opts.Config.ReapBatch,
		},
		Logger: opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire audit reaper: %w", err)
	}
	return &Runner{reaper: r, logger: opts.Logger}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Repo == nil {
		return errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}

// Prune runs a single retention pass.
func (r *Runner) Prune(ctx context.Context) (int64, error) {
	return r.reaper.Prune(ctx)
}
