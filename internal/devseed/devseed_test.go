package devseed

import (
	"context"
	"errors"
	"testing"

	"github.com/eelab/labdesk/internal/domain/model"
	apperrors "github.com/eelab/labdesk/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssigner struct {
	seen     map[string]bool
	failFor  string
	requests []model.AssignRoleRequest
}

func (f *fakeAssigner) Assign(_ context.Context, req model.AssignRoleRequest) (*model.RoleAssignment, error) {
	f.requests = append(f.requests, req)
	if req.UserID == f.failFor {
		return nil, errors.New("db down")
	}
	if f.seen[req.UserID] {
		return nil, apperrors.Conflict("exists")
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	f.seen[req.UserID] = true
	return &model.RoleAssignment{UserID: req.UserID}, nil
}

func TestRun_IsIdempotent(t *testing.T) {
	f := &fakeAssigner{}
	svcs := Services{roles: f}

	require.NoError(t, Run(context.Background(), svcs, nil))
	require.NoError(t, Run(context.Background(), svcs, nil))

	assert.Len(t, f.seen, len(DemoAssignments()))
	for _, req := range f.requests {
		assert.Equal(t, seededBy, req.AssignedBy)
		assert.False(t, req.Replace)
	}
}

func TestRun_ReportsFailures(t *testing.T) {
	f := &fakeAssigner{failFor: "demo-technician"}
	err := Run(context.Background(), Services{roles: f}, nil)
	require.ErrorContains(t, err, "1 seed errors")
	assert.Len(t, f.seen, len(DemoAssignments())-1)
}

func TestDemoAssignments_AreValid(t *testing.T) {
	for _, req := range DemoAssignments() {
		_, err := req.Validate()
		assert.NoError(t, err, req.UserID)
	}
}
