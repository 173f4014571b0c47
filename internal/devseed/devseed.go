// Package devseed fills a development database with demo role assignments.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/eelab/labdesk/internal/data"
	"github.com/eelab/labdesk/internal/domain/model"
	apperrors "github.com/eelab/labdesk/internal/errors"
	"github.com/eelab/labdesk/internal/service"
)

const seededBy = "devseed"

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB    *sql.DB
	roles roleAssigner
}

type roleAssigner interface {
	Assign(ctx context.Context, req model.AssignRoleRequest) (*model.RoleAssignment, error)
}

// NewServices constructs all required services for seeding using the provided DB.
func NewServices(db *sql.DB) Services {
	return Services{
		DB:    db,
		roles: service.NewRoleService(service.RoleServiceOptions{Repo: data.NewRoleAssignmentRepo(db)}),
	}
}

// DemoAssignments are the overrides created by Run. None of them belong to a
// dev persona, so signing in as a persona still exercises the group mapping.
func DemoAssignments() []model.AssignRoleRequest {
	return []model.AssignRoleRequest{
		{UserID: "demo-technician", Role: "admin"},
		{UserID: "demo-visiting-professor", Role: "head_of_department"},
		{UserID: "demo-graduate-assistant", Role: "lecturer"},
		{UserID: "demo-exchange-student", Role: "student"},
		{UserID: "demo-summer-intern", Role: "student"},
	}
}

// Run executes the development seeding workflow against the provided DB.
// Existing assignments are left untouched.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	if failures := seedRoleAssignments(ctx, svcs.roles, DemoAssignments(), logger); failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func seedRoleAssignments(ctx context.Context, svc roleAssigner, reqs []model.AssignRoleRequest, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	failures := 0
	for _, req := range reqs {
		req.AssignedBy = seededBy
		created, err := createAssignment(ctx, svc, req)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create role assignment", "user_id", req.UserID, "error", err)
			failures++
			continue
		}
		msg := "role assignment already exists"
		if created {
			msg = "created role assignment"
		}
		logger.InfoContext(ctx, msg, "user_id", req.UserID, "role", req.Role)
	}
	return failures
}

func createAssignment(ctx context.Context, svc roleAssigner, req model.AssignRoleRequest) (bool, error) {
	if _, err := svc.Assign(ctx, req); err != nil {
		if apperrors.IsConflict(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
