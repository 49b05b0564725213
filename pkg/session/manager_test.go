package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamkit/roamkit/pkg/domain"
)

func TestManager_TryBeginConflict(t *testing.T) {
	m := NewManager()

	release, err := m.TryBegin("s1")
	require.NoError(t, err)

	_, err = m.TryBegin("s1")
	assert.ErrorIs(t, err, domain.ErrTurnInFlight)

	release()

	release2, err := m.TryBegin("s1")
	assert.NoError(t, err, "lease is available again after release")
	release2()
}

func TestManager_BeginQueuesBehindInFlightTurn(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	release, err := m.Begin(ctx, "s1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := m.Begin(ctx, "s1")
		if err == nil {
			close(acquired)
			r()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second turn must not start while the first holds the lease")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("queued turn never acquired the lease")
	}
}

func TestManager_BeginHonorsContext(t *testing.T) {
	m := NewManager()

	release, err := m.Begin(context.Background(), "s1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = m.Begin(ctx, "s1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	m := NewManager()

	r1, err := m.TryBegin("s1")
	require.NoError(t, err)
	defer r1()

	r2, err := m.TryBegin("s2")
	assert.NoError(t, err, "a turn on another session must not block")
	r2()
}

func TestManager_ReleaseIsIdempotent(t *testing.T) {
	m := NewManager()

	release, err := m.TryBegin("s1")
	require.NoError(t, err)

	release()
	release() // second call must be a no-op, not a double token

	r, err := m.TryBegin("s1")
	require.NoError(t, err)
	_, err = m.TryBegin("s1")
	assert.ErrorIs(t, err, domain.ErrTurnInFlight, "lease must still be exclusive")
	r()
}

func TestManager_LeaseLifecycle(t *testing.T) {
	m := NewManager()
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		release, err := m.Begin(ctx, sid)
		require.NoError(t, err)
		release()
	}

	assert.Equal(t, 0, m.Active(), "lease entries must be garbage collected after release")
}

func TestManager_SerializesConcurrentTurns(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	var inTurn, maxInTurn int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Begin(ctx, "shared")
			if err != nil {
				return
			}
			mu.Lock()
			inTurn++
			if inTurn > maxInTurn {
				maxInTurn = inTurn
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inTurn--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInTurn, "turns for the same session must never overlap")
}
