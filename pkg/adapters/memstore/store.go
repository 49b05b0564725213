// Package memstore implements ports.StateStore in process memory. It
// backs local development and the degraded mode of the failover store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/roamkit/roamkit/pkg/domain"
)

type entry struct {
	state     *domain.TripState
	expiresAt time.Time // zero means no expiration
}

type ownerEntry struct {
	userID    string
	expiresAt time.Time
}

// Store implements ports.StateStore in memory.
// Safe for concurrent use. Expiry is lazy: entries are dropped when a
// read observes their deadline has passed.
type Store struct {
	mu     sync.RWMutex
	data   map[string]entry
	owners map[string]ownerEntry

	now func() time.Time // test seam
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data:   make(map[string]entry),
		owners: make(map[string]ownerEntry),
		now:    time.Now,
	}
}

// GetState retrieves the state from memory, honoring lazy expiry.
func (s *Store) GetState(ctx context.Context, sessionID string) (*domain.TripState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.data, sessionID)
		return nil, domain.ErrSessionNotFound
	}

	// Copy on read so callers can't mutate stored state by pointer.
	return e.state.Clone(), nil
}

// PutState persists a deep copy of the state in memory.
func (s *Store) PutState(ctx context.Context, sessionID string, state *domain.TripState, ttl time.Duration) error {
	e := entry{state: state.Clone()}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = e
	return nil
}

// GetOwner returns the owning user, honoring lazy expiry.
func (s *Store) GetOwner(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.owners[sessionID]
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	if !o.expiresAt.IsZero() && s.now().After(o.expiresAt) {
		delete(s.owners, sessionID)
		return "", domain.ErrSessionNotFound
	}
	return o.userID, nil
}

// SetOwner records ownership. Records are immutable once set: the same
// owner is a no-op, a different one fails with ErrOwnershipConflict.
func (s *Store) SetOwner(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.owners[sessionID]; ok {
		expired := !o.expiresAt.IsZero() && s.now().After(o.expiresAt)
		if !expired {
			if o.userID != userID {
				return domain.ErrOwnershipConflict
			}
			return nil
		}
	}

	o := ownerEntry{userID: userID}
	if ttl > 0 {
		o.expiresAt = s.now().Add(ttl)
	}
	s.owners[sessionID] = o
	return nil
}

// Delete removes the state and ownership entries.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	delete(s.owners, sessionID)
	return nil
}

// Ping always succeeds; memory is never unreachable.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Len reports the number of live state entries. Used by tests.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
