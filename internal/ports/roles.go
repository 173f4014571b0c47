package ports

import (
	"context"
	"errors"
	"time"

	"github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/model"
)

// RoleAssignmentRepository stores per-user role overrides.
type RoleAssignmentRepository interface {
	Get(ctx context.Context, userID string) (*model.RoleAssignment, error)
	List(ctx context.Context, limit, offset int) ([]*model.RoleAssignment, error)
	Create(ctx context.Context, a model.RoleAssignment) (*model.RoleAssignment, error)
	Upsert(ctx context.Context, a model.RoleAssignment) (*model.RoleAssignment, error)
	Delete(ctx context.Context, userID string) (bool, error)
	CountByRole(ctx context.Context) (map[auth.Role]int, error)
}

// AccessEventRepository stores gate denial audit events.
type AccessEventRepository interface {
	Insert(ctx context.Context, ev model.AccessEvent) error
	List(ctx context.Context, opts model.AccessEventListOptions) ([]*model.AccessEvent, error)
	// DeleteOlderThan removes at most batch events that occurred before cutoff and returns the count.
	DeleteOlderThan(ctx context.Context, cutoff time.Time, batch int) (int64, error)
}

// ErrRoleAssignmentNotFound is returned by RoleAssignmentRepository.Get when a user has no override.
var ErrRoleAssignmentNotFound = errors.New("role assignment not found")
