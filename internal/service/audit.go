package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/eelab/labdesk/internal/domain/model"
	"github.com/eelab/labdesk/internal/ports"
)

var _ ports.AccessRecorder = (*AccessAuditor)(nil)

// AuditMetrics receives audit pipeline counters. *metrics.Metrics satisfies it.
type AuditMetrics interface {
	AuditWritten()
	AuditDropped()
	AuditFailed()
}

// AccessAuditorConfig tunes the audit queue.
type AccessAuditorConfig struct {
	QueueSize    int           // default 256
	WriteTimeout time.Duration // per insert, default 2s
	Metrics      AuditMetrics  // optional
}

// AccessAuditorOptions groups dependencies for AccessAuditor.
type AccessAuditorOptions struct {
	Repo   ports.AccessEventRepository // Required
	Logger *slog.Logger                // Optional
	Config AccessAuditorConfig
}

// AccessAuditor queues gate denial events and persists them from a single worker.
// Record never blocks: when the queue is full the event is dropped and counted.
type AccessAuditor struct {
	repo    ports.AccessEventRepository
	logger  *slog.Logger
	metrics AuditMetrics
	timeout time.Duration
	queue   chan model.AccessEvent
	dropped atomic.Int64
	now     func() time.Time
}

// NewAccessAuditor constructs an AccessAuditor. Call Run to start persisting.
func NewAccessAuditor(opts AccessAuditorOptions) (*AccessAuditor, error) {
	if opts.Repo == nil {
		return nil, errors.New("AccessEventRepository is required")
	}
	size := opts.Config.QueueSize
	if size <= 0 {
		size = 256
	}
	timeout := opts.Config.WriteTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessAuditor{
		repo:    opts.Repo,
		logger:  logger.With("component", "access_auditor"),
		metrics: opts.Config.Metrics,
		timeout: timeout,
		queue:   make(chan model.AccessEvent, size),
		now:     time.Now,
	}, nil
}

// Record enqueues ev without blocking.
func (a *AccessAuditor) Record(ev model.AccessEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = a.now()
	}
	select {
	case a.queue <- ev:
	default:
		a.dropped.Add(1)
		if a.metrics != nil {
			a.metrics.AuditDropped()
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (a *AccessAuditor) Dropped() int64 { return a.dropped.Load() }

// List returns stored events, newest first.
func (a *AccessAuditor) List(ctx context.Context, opts model.AccessEventListOptions) ([]*model.AccessEvent, error) {
	return a.repo.List(ctx, opts)
}

// Run persists queued events until ctx is cancelled, then drains what is
// already queued. Returns nil on graceful shutdown.
func (a *AccessAuditor) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting access auditor", "queue_size", cap(a.queue))
	for {
		select {
		case <-ctx.Done():
			a.drain()
			a.logger.Info("access auditor stopped", "dropped", a.Dropped())
			return nil
		case ev := <-a.queue:
			a.write(context.WithoutCancel(ctx), ev)
		}
	}
}

func (a *AccessAuditor) drain() {
	for {
		select {
		case ev := <-a.queue:
			a.write(context.Background(), ev)
		default:
			return
		}
	}
}

func (a *AccessAuditor) write(parent context.Context, ev model.AccessEvent) {
	ctx, cancel := context.WithTimeout(parent, a.timeout)
	defer cancel()
	if err := a.repo.Insert(ctx, ev); err != nil {
		a.logger.Warn("failed to persist access event",
			"policy", ev.Policy, "state", ev.StateName(), "path", ev.Path, "error", err)
		if a.metrics != nil {
			a.metrics.AuditFailed()
		}
		return
	}
	if a.metrics != nil {
		a.metrics.AuditWritten()
	}
}
