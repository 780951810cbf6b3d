// Package redis keeps OAuth state in Redis so the callback can land on any
// instance.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docuconvo/auth/pkg/auth"
)

// DefaultKeyPrefix is prepended to every state key.
const DefaultKeyPrefix = "oauth_state:"

var _ auth.StateStore = (*StateStore)(nil)

// StateStore is an auth.StateStore backed by Redis keys with a TTL.
type StateStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option configures a StateStore.
type Option func(*StateStore)

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *StateStore) {
		s.prefix = prefix
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *StateStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStateStore wraps client.
func NewStateStore(client redis.UniversalClient, opts ...Option) *StateStore {
	s := &StateStore{
		client: client,
		prefix: DefaultKeyPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StoreState saves state until its ExpiresAt. A state that is already
// expired is not written.
func (s *StateStore) StoreState(ctx context.Context, state auth.OAuthState) error {
	ttl := state.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal oauth state: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+state.State, data, ttl).Err(); err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	return nil
}

func (s *StateStore) ConsumeState(ctx context.Context, state string) (*auth.OAuthState, error) {
	data, err := s.client.GetDel(ctx, s.prefix+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, auth.ErrStateNotFound
		}
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}

	var out auth.OAuthState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal oauth state: %w", err)
	}
	if !out.ExpiresAt.After(s.now()) {
		return nil, auth.ErrStateNotFound
	}
	return &out, nil
}
