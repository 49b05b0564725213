package session

import (
	"context"
	"sync"

	"github.com/roamkit/roamkit/pkg/domain"
)

// leaseEntry holds the per-session gate and its reference count.
type leaseEntry struct {
	ch   chan struct{} // capacity 1: holds the single writer token
	refs int
}

// Manager hands out per-session turn leases. It uses reference counting
// to garbage collect entries for idle sessions, so the map never grows
// with the total number of sessions ever seen.
type Manager struct {
	mu     sync.Mutex
	leases map[string]*leaseEntry
}

// ReleaseFunc returns the lease. It MUST be called exactly once, after
// the terminal stream event is emitted or the turn aborts.
type ReleaseFunc func()

// NewManager creates a lease manager.
func NewManager() *Manager {
	return &Manager{leases: make(map[string]*leaseEntry)}
}

// acquireEntry gets or creates the entry and bumps its refcount.
func (m *Manager) acquireEntry(sessionID string) *leaseEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.leases[sessionID]
	if !ok {
		entry = &leaseEntry{ch: make(chan struct{}, 1)}
		entry.ch <- struct{}{}
		m.leases[sessionID] = entry
	}
	entry.refs++
	return entry
}

// releaseEntry drops one reference and frees the entry at zero.
func (m *Manager) releaseEntry(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.leases[sessionID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.leases, sessionID)
	}
}

// Begin blocks until the session's turn lease is available, queueing
// behind any in-flight turn, or until ctx is done.
func (m *Manager) Begin(ctx context.Context, sessionID string) (ReleaseFunc, error) {
	entry := m.acquireEntry(sessionID)

	select {
	case <-entry.ch:
		return m.releaseFunc(sessionID, entry), nil
	case <-ctx.Done():
		m.releaseEntry(sessionID)
		return nil, ctx.Err()
	}
}

// TryBegin acquires the lease only if no turn is in flight, failing fast
// with domain.ErrTurnInFlight otherwise. The HTTP layer uses this to
// reject concurrent turns with a conflict instead of queueing them.
func (m *Manager) TryBegin(sessionID string) (ReleaseFunc, error) {
	entry := m.acquireEntry(sessionID)

	select {
	case <-entry.ch:
		return m.releaseFunc(sessionID, entry), nil
	default:
		m.releaseEntry(sessionID)
		return nil, domain.ErrTurnInFlight
	}
}

func (m *Manager) releaseFunc(sessionID string, entry *leaseEntry) ReleaseFunc {
	var once sync.Once
	return func() {
		once.Do(func() {
			entry.ch <- struct{}{}
			m.releaseEntry(sessionID)
		})
	}
}

// Active reports the number of sessions with live lease entries. Used by
// tests to verify entries are garbage collected.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leases)
}
