package testutil

import (
	"time"

	"github.com/eelab/labdesk/internal/domain/auth"
	"github.com/eelab/labdesk/internal/domain/gate"
	"github.com/eelab/labdesk/internal/domain/model"
	"github.com/google/uuid"
)

// NewAccessEvent returns a denial event with sensible defaults; mutate the result as needed.
func NewAccessEvent(policy, userID string, at time.Time) model.AccessEvent {
	return model.AccessEvent{
		ID:         uuid.NewString(),
		Policy:     policy,
		State:      gate.StateUnauthorized,
		Path:       "/" + policy,
		UserID:     userID,
		Role:       auth.RoleStudent,
		ClientID:   uuid.NewString(),
		OccurredAt: at,
	}
}

// NewRoleAssignment returns an assignment made by "admin" at TestTime.
func NewRoleAssignment(userID string, role auth.Role) model.RoleAssignment {
	return model.RoleAssignment{
		UserID:     userID,
		Role:       role,
		AssignedBy: "admin",
		CreatedAt:  TestTime(),
		UpdatedAt:  TestTime(),
	}
}
