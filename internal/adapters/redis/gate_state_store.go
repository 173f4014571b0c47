package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eelab/labdesk/internal/domain/gate"
	"github.com/eelab/labdesk/internal/ports"
	"github.com/redis/go-redis/v9"
)

var _ ports.GateStateStore = (*GateStateStore)(nil)

// DefaultGateStateTTL bounds how long an idle client's previous states are kept.
const DefaultGateStateTTL = 30 * time.Minute

// GateStateStore keeps one hash per client: field = policy name, value = state name.
// The whole hash shares a sliding TTL.
type GateStateStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewGateStateStore creates a store; ttl <= 0 selects DefaultGateStateTTL.
func NewGateStateStore(client redis.UniversalClient, ttl time.Duration) *GateStateStore {
	if ttl <= 0 {
		ttl = DefaultGateStateTTL
	}
	return &GateStateStore{client: client, prefix: "gate:", ttl: ttl}
}

func (s *GateStateStore) key(clientID string) string { return s.prefix + clientID }

func (s *GateStateStore) Load(ctx context.Context, key ports.GateStateKey) (gate.State, error) {
	if key.ClientID == "" {
		return gate.StateUnknown, nil
	}
	v, err := s.client.HGet(ctx, s.key(key.ClientID), key.Policy).Result()
	if errors.Is(err, redis.Nil) {
		return gate.StateUnknown, nil
	}
	if err != nil {
		return gate.StateUnknown, fmt.Errorf("redis hget gate state: %w", err)
	}
	return gate.ParseState(v), nil
}

func (s *GateStateStore) Save(ctx context.Context, key ports.GateStateKey, state gate.State) error {
	if key.ClientID == "" {
		return errors.New("gate state client id cannot be empty")
	}
	k := s.key(key.ClientID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, key.Policy, state.String())
		p.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save gate state: %w", err)
	}
	return nil
}

func (s *GateStateStore) Clear(ctx context.Context, clientID string) error {
	if clientID == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(clientID)).Err(); err != nil {
		return fmt.Errorf("redis clear gate state: %w", err)
	}
	return nil
}
