package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/eelab/labdesk/internal/data/pgxutil"
	"github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/gate"
	"github.com/eelab/labdesk/internal/domain/model"
	apperrors "github.com/eelab/labdesk/internal/errors"
	"github.com/eelab/labdesk/internal/ports"
	"github.com/google/uuid"
)

var _ ports.AccessEventRepository = (*AccessEventRepo)(nil)

const maxAccessEventPage = 500

type accessEventRow struct {
	ID         string    `db:"id"`
	Policy     string    `db:"policy"`
	State      string    `db:"state"`
	Path       string    `db:"path"`
	UserID     string    `db:"user_id"`
	Role       string    `db:"role"`
	ClientID   string    `db:"client_id"`
	OccurredAt time.Time `db:"occurred_at"`
}

func (r accessEventRow) toModel() *model.AccessEvent {
	ev := &model.AccessEvent{
		ID:         r.ID,
		Policy:     r.Policy,
		State:      gate.ParseState(r.State),
		Path:       r.Path,
		UserID:     r.UserID,
		ClientID:   r.ClientID,
		OccurredAt: r.OccurredAt,
	}
	if role, err := auth.ParseRole(r.Role); err == nil {
		ev.Role = role
	}
	return ev
}

// AccessEventRepo stores gate denial events in Postgres.
type AccessEventRepo struct {
	DB *sql.DB
}

// NewAccessEventRepo creates a new AccessEventRepo.
func NewAccessEventRepo(db *sql.DB) *AccessEventRepo {
	return &AccessEventRepo{DB: db}
}

// Insert stores ev, assigning an id and timestamp when missing.
func (r *AccessEventRepo) Insert(ctx context.Context, ev model.AccessEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO access_events (id, policy, state, path, user_id, role, client_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.Policy, ev.StateName(), ev.Path, ev.UserID, ev.RoleName(), ev.ClientID, ev.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert access event: %w", apperrors.MapDBError(err))
	}
	return nil
}

// List returns the most recent events first.
func (r *AccessEventRepo) List(ctx context.Context, opts model.AccessEventListOptions) ([]*model.AccessEvent, error) {
	query, args := buildAccessEventQuery(opts)
	rows, err := pgxutil.CollectStructs[accessEventRow](ctx, r.DB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list access events: %w", apperrors.MapDBError(err))
	}
	out := make([]*model.AccessEvent, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

// DeleteOlderThan removes up to batch events older than cutoff.
func (r *AccessEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	if batch <= 0 {
		batch = 1000
	}
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM access_events
		WHERE id IN (
			SELECT id FROM access_events
			WHERE occurred_at < $1
			ORDER BY occurred_at
			LIMIT $2
		)`, cutoff.UTC(), batch)
	if err != nil {
		return 0, fmt.Errorf("delete access events: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete access events: %w", err)
	}
	return n, nil
}

func buildAccessEventQuery(opts model.AccessEventListOptions) (string, []any) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > maxAccessEventPage {
		limit = maxAccessEventPage
	}
	offset := max(opts.Offset, 0)

	var (
		where []string
		args  []any
	)
	if opts.Policy != "" {
		args = append(args, opts.Policy)
		where = append(where, fmt.Sprintf("policy = $%d", len(args)))
	}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT id::text AS id, policy, state, path, user_id, role, client_id, occurred_at FROM access_events`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, limit, offset)
	fmt.Fprintf(&b, " ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}
