package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamkit/roamkit/pkg/domain"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore
// implementation adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Put and Get", func(t *testing.T) {
		state := domain.NewTripState()
		state.Preferences.Destination = "Lisbon, Portugal"
		state.Phase = domain.PhaseResearching

		err := store.PutState(ctx, sessionID, state, 0)
		require.NoError(t, err, "PutState should not return error")

		loaded, err := store.GetState(ctx, sessionID)
		require.NoError(t, err, "GetState should not return error")
		assert.Equal(t, "Lisbon, Portugal", loaded.Preferences.Destination)
		assert.Equal(t, domain.PhaseResearching, loaded.Phase)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.GetState(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Ownership", func(t *testing.T) {
		id := sessionID + "-owner"
		_, err := store.GetOwner(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		require.NoError(t, store.SetOwner(ctx, id, "user-a", 0))

		owner, err := store.GetOwner(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "user-a", owner)

		// Idempotent for the same owner.
		assert.NoError(t, store.SetOwner(ctx, id, "user-a", 0))

		// Immutable once set.
		err = store.SetOwner(ctx, id, "user-b", 0)
		assert.ErrorIs(t, err, domain.ErrOwnershipConflict)

		_ = store.Delete(ctx, id)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.PutState(ctx, sessionID, domain.NewTripState(), 0))
		require.NoError(t, store.SetOwner(ctx, sessionID, "user-a", 0))

		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.GetState(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "GetState after Delete should return ErrSessionNotFound")
		_, err = store.GetOwner(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "GetOwner after Delete should return ErrSessionNotFound")
	})
}
