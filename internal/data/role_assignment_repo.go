package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eelab/labdesk/internal/data/pgxutil"
	"github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/model"
	apperrors "github.com/eelab/labdesk/internal/errors"
	"github.com/eelab/labdesk/internal/ports"
)

var _ ports.RoleAssignmentRepository = (*RoleAssignmentRepo)(nil)

// ErrRoleAssignmentNotFound is returned when a user has no role assignment.
var ErrRoleAssignmentNotFound = ports.ErrRoleAssignmentNotFound

const roleAssignmentColumns = `user_id, role, assigned_by, created_at, updated_at`

// roleAssignmentRow mirrors the role_assignments table; role is parsed after scanning.
type roleAssignmentRow struct {
	UserID     string    `db:"user_id"`
	Role       string    `db:"role"`
	AssignedBy string    `db:"assigned_by"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r roleAssignmentRow) toModel() (*model.RoleAssignment, error) {
	role, err := auth.ParseRole(r.Role)
	if err != nil {
		return nil, fmt.Errorf("role assignment %s: %w", r.UserID, err)
	}
	return &model.RoleAssignment{
		UserID:     r.UserID,
		Role:       role,
		AssignedBy: r.AssignedBy,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

// RoleAssignmentRepo stores role overrides in Postgres.
type RoleAssignmentRepo struct {
	DB *sql.DB
}

// NewRoleAssignmentRepo creates a new RoleAssignmentRepo.
func NewRoleAssignmentRepo(db *sql.DB) *RoleAssignmentRepo {
	return &RoleAssignmentRepo{DB: db}
}

// Get returns the assignment for userID or ErrRoleAssignmentNotFound.
func (r *RoleAssignmentRepo) Get(ctx context.Context, userID string) (*model.RoleAssignment, error) {
	rows, err := pgxutil.CollectStructs[roleAssignmentRow](ctx, r.DB,
		`SELECT `+roleAssignmentColumns+` FROM role_assignments WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("get role assignment: %w", apperrors.MapDBError(err))
	}
	if len(rows) == 0 {
		return nil, ErrRoleAssignmentNotFound
	}
	return rows[0].toModel()
}

// List returns assignments ordered by user id.
func (r *RoleAssignmentRepo) List(ctx context.Context, limit, offset int) ([]*model.RoleAssignment, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := pgxutil.CollectStructs[roleAssignmentRow](ctx, r.DB,
		`SELECT `+roleAssignmentColumns+` FROM role_assignments ORDER BY user_id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", apperrors.MapDBError(err))
	}
	out := make([]*model.RoleAssignment, 0, len(rows))
	for _, row := range rows {
		a, convErr := row.toModel()
		if convErr != nil {
			return nil, convErr
		}
		out = append(out, a)
	}
	return out, nil
}

// Create inserts a new assignment. A duplicate user id is a conflict AppError.
func (r *RoleAssignmentRepo) Create(ctx context.Context, a model.RoleAssignment) (*model.RoleAssignment, error) {
	return r.write(ctx, `
		INSERT INTO role_assignments (user_id, role, assigned_by)
		VALUES ($1, $2, $3)
		RETURNING `+roleAssignmentColumns, a)
}

// Upsert inserts or replaces the assignment for a.UserID.
func (r *RoleAssignmentRepo) Upsert(ctx context.Context, a model.RoleAssignment) (*model.RoleAssignment, error) {
	return r.write(ctx, `
		INSERT INTO role_assignments (user_id, role, assigned_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET role = EXCLUDED.role, assigned_by = EXCLUDED.assigned_by, updated_at = now()
		RETURNING `+roleAssignmentColumns, a)
}

func (r *RoleAssignmentRepo) write(ctx context.Context, query string, a model.RoleAssignment) (*model.RoleAssignment, error) {
	if !a.Role.Valid() {
		return nil, apperrors.ValidationField("role", "role is invalid")
	}
	rows, err := pgxutil.CollectStructs[roleAssignmentRow](ctx, r.DB, query, a.UserID, a.Role.String(), a.AssignedBy)
	if err != nil {
		return nil, fmt.Errorf("write role assignment: %w", apperrors.MapDBError(err))
	}
	if len(rows) == 0 {
		return nil, errors.New("write role assignment: no row returned")
	}
	return rows[0].toModel()
}

// Delete removes the assignment; it reports whether a row existed.
func (r *RoleAssignmentRepo) Delete(ctx context.Context, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM role_assignments WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete role assignment: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete role assignment rows affected: %w", err)
	}
	return n > 0, nil
}

// CountByRole returns the number of assignments per role.
func (r *RoleAssignmentRepo) CountByRole(ctx context.Context) (map[auth.Role]int, error) {
	type countRow struct {
		Role  string `db:"role"`
		Count int    `db:"count"`
	}
	rows, err := pgxutil.CollectStructs[countRow](ctx, r.DB,
		`SELECT role, COUNT(*)::int AS count FROM role_assignments GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count role assignments: %w", apperrors.MapDBError(err))
	}
	out := make(map[auth.Role]int, len(rows))
	for _, row := range rows {
		role, parseErr := auth.ParseRole(row.Role)
		if parseErr != nil {
			continue
		}
		out[role] = row.Count
	}
	return out, nil
}
