package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eelab/labdesk/internal/ports"
)

// AuditRetention configures pruning of old access events.
type AuditRetention struct {
	MaxAge    time.Duration // events older than this are deleted
	Interval  time.Duration // how often to prune
	BatchSize int           // rows per delete statement
}

// AuditReaperOptions groups dependencies for AuditReaper.
type AuditReaperOptions struct {
	Repo   ports.AccessEventRepository // Required
	Config AuditRetention              // Required: MaxAge and Interval must be positive
	Logger *slog.Logger                // Optional
}

// AuditReaper periodically deletes access events past the retention window.
type AuditReaper struct {
	repo   ports.AccessEventRepository
	config AuditRetention
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditReaper constructs an AuditReaper.
func NewAuditReaper(opts AuditReaperOptions) (*AuditReaper, error) {
	if opts.Repo == nil {
		return nil, errors.New("AccessEventRepository is required")
	}
	if opts.Config.MaxAge <= 0 || opts.Config.Interval <= 0 {
		return nil, errors.New("audit retention MaxAge and Interval must be positive")
	}
	if opts.Config.BatchSize <= 0 {
		opts.Config.BatchSize = 1000
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditReaper{
		repo:   opts.Repo,
		config: opts.Config,
		logger: logger.With("component", "audit_reaper"),
		now:    time.Now,
	}, nil
}

// Run prunes once after a short jitter and then on every interval until ctx is cancelled.
// Returns nil on graceful shutdown.
func (r *AuditReaper) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting audit reaper", "interval", r.config.Interval, "max_age", r.config.MaxAge)
	r.waitWithJitter(ctx)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.Prune(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "audit prune failed", "error", err)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Prune deletes expired events in batches and returns the total removed.
func (r *AuditReaper) Prune(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.config.MaxAge)
	var total int64
	for {
		n, err := r.repo.DeleteOlderThan(ctx, cutoff, r.config.BatchSize)
		if err != nil {
			return total, fmt.Errorf("prune access events: %w", err)
		}
		total += n
		if n < int64(r.config.BatchSize) {
			break
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
	if total > 0 {
		r.logger.InfoContext(ctx, "pruned access events", "count", total, "cutoff", cutoff)
	}
	return total, nil
}

// waitWithJitter sleeps up to 10% of the interval so replicas do not prune in lockstep.
func (r *AuditReaper) waitWithJitter(ctx context.Context) {
	maxJitter := int64(r.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}
