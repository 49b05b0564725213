package ports

import (
	"context"
	"time"

	"github.com/roamkit/roamkit/pkg/domain"
)

// StateStore persists trip state and session ownership.
// Implementations must be safe for concurrent use across sessions.
type StateStore interface {
	// GetState retrieves the state for a session.
	// Returns domain.ErrSessionNotFound if the session does not exist
	// or its entry has expired.
	GetState(ctx context.Context, sessionID string) (*domain.TripState, error)

	// PutState persists the state with the given time-to-live.
	// A zero ttl means no expiration.
	PutState(ctx context.Context, sessionID string, state *domain.TripState, ttl time.Duration) error

	// GetOwner returns the owning user for a session.
	// Returns domain.ErrSessionNotFound if no ownership record exists.
	GetOwner(ctx context.Context, sessionID string) (string, error)

	// SetOwner records session ownership. Setting the same owner again is
	// a no-op; a different owner fails with domain.ErrOwnershipConflict.
	SetOwner(ctx context.Context, sessionID, userID string, ttl time.Duration) error

	// Delete removes the state and ownership entries for a session.
	Delete(ctx context.Context, sessionID string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
