// Package redisstore implements ports.StateStore using Redis, the
// durable backend of the failover store.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/roamkit/roamkit/pkg/domain"
)

// Store implements ports.StateStore using Redis. Expiry is
// backend-native: every key carries the TTL supplied by the caller.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix for all entries.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(addr, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "roamkit:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) stateKey(sessionID string) string {
	return s.prefix + "state:" + sessionID
}

func (s *Store) ownerKey(sessionID string) string {
	return s.prefix + "owner:" + sessionID
}

// GetState retrieves the state from Redis.
func (s *Store) GetState(ctx context.Context, sessionID string) (*domain.TripState, error) {
	val, err := s.client.Get(ctx, s.stateKey(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.TripState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// PutState persists the state to Redis with the given TTL.
func (s *Store) PutState(ctx context.Context, sessionID string, state *domain.TripState, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := s.client.Set(ctx, s.stateKey(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// GetOwner returns the owning user for a session.
func (s *Store) GetOwner(ctx context.Context, sessionID string) (string, error) {
	val, err := s.client.Get(ctx, s.ownerKey(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return "", domain.ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to get owner from redis: %w", err)
	}
	return val, nil
}

// SetOwner records ownership with SET NX so the record is immutable once
// set. Re-setting the same owner refreshes the TTL.
func (s *Store) SetOwner(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, s.ownerKey(sessionID), userID, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to set owner in redis: %w", err)
	}
	if ok {
		return nil
	}

	current, err := s.client.Get(ctx, s.ownerKey(sessionID)).Result()
	if err != nil && err != backend.Nil {
		return fmt.Errorf("failed to verify owner in redis: %w", err)
	}
	if current != userID {
		return domain.ErrOwnershipConflict
	}
	if ttl > 0 {
		// Keep the ownership record alive as long as the session.
		_ = s.client.Expire(ctx, s.ownerKey(sessionID), ttl).Err()
	}
	return nil
}

// Delete removes the state and ownership entries.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.stateKey(sessionID))
	pipe.Del(ctx, s.ownerKey(sessionID))
	_, err := pipe.Exec(ctx)
	return err
}

// Ping verifies the Redis backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
