package ports

import (
	"context"

	"github.com/eelab/labdesk/internal/domain/gate"
	"github.com/eelab/labdesk/internal/domain/model"
)

// GateStateKey identifies the previous-state slot of one client under one policy.
type GateStateKey struct {
	ClientID string
	Policy   string
}

// GateStateStore persists the previous gate state between requests.
// Load returns gate.StateUnknown when nothing is recorded.
type GateStateStore interface {
	Load(ctx context.Context, key GateStateKey) (gate.State, error)
	Save(ctx context.Context, key GateStateKey, state gate.State) error
	// Clear forgets every policy slot for a client.
	Clear(ctx context.Context, clientID string) error
}

// AccessRecorder accepts audit events without blocking the caller.
type AccessRecorder interface {
	Record(ev model.AccessEvent)
}
