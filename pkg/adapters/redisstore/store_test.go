package redisstore_test

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
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *redisstore.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return mr, redisstore.NewFromClient(client)
}

func TestRedisStore_Contract(t *testing.T) {
	_, store := newTestStore(t)
	ports.RunStateStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	state := domain.NewTripState()
	state.Preferences.Destination = "Kyoto, Japan"

	require.NoError(t, store.PutState(ctx, "session-ttl", state, time.Second))
	require.NoError(t, store.SetOwner(ctx, "session-ttl", "user-a", time.Second))

	// Fast forward time in miniredis to trigger key expiration.
	mr.FastForward(2 * time.Second)

	_, err := store.GetState(ctx, "session-ttl")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = store.GetOwner(ctx, "session-ttl")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redisstore.NewFromClient(client, redisstore.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.PutState(ctx, "my-session", domain.NewTripState(), 0))
	require.NoError(t, store.SetOwner(ctx, "my-session", "user-a", 0))

	assert.True(t, mr.Exists("custom:app:state:my-session"), "expected state key with custom prefix")
	assert.True(t, mr.Exists("custom:app:owner:my-session"), "expected owner key with custom prefix")
}

func TestRedisStore_Ping_Unreachable(t *testing.T) {
	mr, store := newTestStore(t)

	assert.NoError(t, store.Ping(context.Background()))

	mr.Close()
	err := store.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
