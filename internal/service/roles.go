package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/model"
	apperrors "github.com/eelab/labdesk/internal/errors"
	"github.com/eelab/labdesk/internal/ports"
)

// RoleServiceOptions groups dependencies for RoleService.
type RoleServiceOptions struct {
	Repo ports.RoleAssignmentRepository
}

// RoleService manages per-user role overrides.
// Overrides apply at the user's next login.
type RoleService struct {
	repo ports.RoleAssignmentRepository
}

// NewRoleService constructs a new RoleService.
func NewRoleService(opts RoleServiceOptions) *RoleService {
	if opts.Repo == nil {
		panic("role service: Repo is required")
	}
	return &RoleService{repo: opts.Repo}
}

// Assign validates req and stores the override. Without req.Replace an existing
// assignment is a conflict.
func (s *RoleService) Assign(ctx context.Context, req model.AssignRoleRequest) (*model.RoleAssignment, error) {
	role, err := req.Validate()
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	a := model.RoleAssignment{
		UserID:     req.UserID,
		Role:       role,
		AssignedBy: strings.TrimSpace(req.AssignedBy),
	}
	if req.Replace {
		return s.repo.Upsert(ctx, a)
	}
	out, err := s.repo.Create(ctx, a)
	if apperrors.IsConflict(err) {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConflict,
			fmt.Sprintf("user %s already has a role assignment", a.UserID))
	}
	return out, err
}

// Get returns the override for userID as a NotFound AppError when absent.
func (s *RoleService) Get(ctx context.Context, userID string) (*model.RoleAssignment, error) {
	a, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ports.ErrRoleAssignmentNotFound) {
		return nil, apperrors.NotFoundf("no role assignment for %s", userID)
	}
	return a, err
}

// List returns a page of overrides.
func (s *RoleService) List(ctx context.Context, limit, offset int) ([]*model.RoleAssignment, error) {
	return s.repo.List(ctx, limit, offset)
}

// Remove deletes the override for userID. Removing a missing override is a NotFound error.
func (s *RoleService) Remove(ctx context.Context, userID string) error {
	ok, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFoundf("no role assignment for %s", userID)
	}
	return nil
}

// RoleCount is one row of the assignment summary.
type RoleCount struct {
	Role  domainauth.Role
	Count int
}

// Summary counts overrides per role in display order, including zero counts.
func (s *RoleService) Summary(ctx context.Context) ([]RoleCount, error) {
	counts, err := s.repo.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleCount, 0, len(domainauth.AllRoles()))
	for _, r := range domainauth.AllRoles() {
		out = append(out, RoleCount{Role: r, Count: counts[r]})
	}
	return out, nil
}
