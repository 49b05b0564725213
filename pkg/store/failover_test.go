package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamkit/roamkit/pkg/adapters/redisstore"
	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/ports"
	"github.com/roamkit/roamkit/pkg/store"
)

func TestFailover_Contract(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	f := store.NewFailover(redisstore.NewFromClient(client))
	ports.RunStateStoreContract(t, f)
	assert.False(t, f.Degraded())
}

func TestFailover_NoDurableBackend(t *testing.T) {
	f := store.NewFailover(nil)
	assert.True(t, f.Degraded(), "store without a durable backend starts degraded")
	ports.RunStateStoreContract(t, f)
}

func TestFailover_DegradesOnOutage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	f := store.NewFailover(redisstore.NewFromClient(client))
	ctx := context.Background()

	require.NoError(t, f.PutState(ctx, "s1", domain.NewTripState(), 0))
	assert.False(t, f.Degraded())

	// Simulate the durable backend going away.
	mr.Close()

	state := domain.NewTripState()
	state.Preferences.Destination = "Hanoi, Vietnam"
	require.NoError(t, f.PutState(ctx, "s1", state, 0), "writes must keep succeeding via fallback")
	assert.True(t, f.Degraded())

	// Read-after-write holds within the same process while degraded.
	loaded, err := f.GetState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Hanoi, Vietnam", loaded.Preferences.Destination)
}

func TestFailover_OwnershipConflictNotMasked(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	f := store.NewFailover(redisstore.NewFromClient(client))
	ctx := context.Background()

	require.NoError(t, f.SetOwner(ctx, "s1", "user-a", 0))

	// A conflict is a domain outcome, not a connectivity failure: it must
	// surface as-is and must not flip the store into degraded mode.
	err = f.SetOwner(ctx, "s1", "user-b", 0)
	assert.ErrorIs(t, err, domain.ErrOwnershipConflict)
	assert.False(t, f.Degraded())
}

func TestFailover_RecoversViaProbe(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	f := store.NewFailover(
		redisstore.NewFromClient(client),
		store.WithProbeInterval(10*time.Millisecond),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Force degraded mode with a dead server, then bring it back.
	addr := mr.Addr()
	mr.Close()
	require.NoError(t, f.PutState(ctx, "s1", domain.NewTripState(), 0))
	require.True(t, f.Degraded())

	restarted := miniredis.NewMiniRedis()
	require.NoError(t, restarted.StartAddr(addr))
	defer restarted.Close()

	go f.StartProbing(ctx)

	assert.Eventually(t, func() bool { return !f.Degraded() },
		2*time.Second, 20*time.Millisecond, "probe loop should resume the durable backend")

	// In-memory data written while degraded is not migrated.
	_, err = f.GetState(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
