// Package store provides the dual-backend state store: a durable backend
// attempted first with a transparent in-memory fallback when it is
// unreachable.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roamkit/roamkit/internal/logging"
	"github.com/roamkit/roamkit/internal/metrics"
	"github.com/roamkit/roamkit/pkg/adapters/memstore"
	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/ports"
)

// Failover implements ports.StateStore over a durable backend with an
// in-memory fallback. While degraded, writes succeed locally but are not
// shared across process instances and do not survive restart. On
// recovery the durable backend is resumed; in-memory data is not
// retro-migrated. That is a documented limitation, surfaced to callers
// through Degraded.
type Failover struct {
	durable  ports.StateStore
	fallback *memstore.Store

	degraded atomic.Bool
	logger   *slog.Logger

	probeInterval time.Duration
}

// Option configures the Failover store.
type Option func(*Failover)

// WithLogger configures a logger for backend transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Failover) {
		f.logger = logger
	}
}

// WithProbeInterval sets how often a lost durable backend is re-probed.
func WithProbeInterval(d time.Duration) Option {
	return func(f *Failover) {
		f.probeInterval = d
	}
}

// NewFailover creates a failover store. A nil durable backend starts the
// store permanently degraded (single-process, in-memory only).
func NewFailover(durable ports.StateStore, opts ...Option) *Failover {
	f := &Failover{
		durable:       durable,
		fallback:      memstore.NewStore(),
		logger:        logging.NewNop(),
		probeInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	if durable == nil {
		f.markDegraded(errors.New("no durable backend configured"))
	}
	return f
}

// Degraded reports whether the store is serving from the in-memory
// fallback.
func (f *Failover) Degraded() bool {
	return f.degraded.Load()
}

// StartProbing launches the background loop that re-checks the durable
// backend while degraded and resumes it on success. It returns when ctx
// is canceled.
func (f *Failover) StartProbing(ctx context.Context) {
	if f.durable == nil {
		return
	}
	ticker := time.NewTicker(f.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !f.degraded.Load() {
				continue
			}
			if err := f.durable.Ping(ctx); err == nil {
				f.markRecovered()
			}
		}
	}
}

func (f *Failover) markDegraded(cause error) {
	if f.degraded.CompareAndSwap(false, true) {
		metrics.StoreDegraded.Set(1)
		f.logger.Warn("state store degraded, falling back to in-memory backend", "err", cause)
	}
}

func (f *Failover) markRecovered() {
	if f.degraded.CompareAndSwap(true, false) {
		metrics.StoreDegraded.Set(0)
		f.logger.Info("durable state store recovered; in-memory entries are not migrated")
	}
}

// connectivity reports whether err means the backend is unreachable, as
// opposed to a domain outcome like a missing session.
func connectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrOwnershipConflict) {
		return false
	}
	return true
}

// GetState reads from the durable backend, falling back on failure.
func (f *Failover) GetState(ctx context.Context, sessionID string) (*domain.TripState, error) {
	if f.durable != nil && !f.degraded.Load() {
		state, err := f.durable.GetState(ctx, sessionID)
		if !connectivity(err) {
			return state, err
		}
		f.markDegraded(err)
	}
	return f.fallback.GetState(ctx, sessionID)
}

// PutState writes to the durable backend, falling back on failure.
func (f *Failover) PutState(ctx context.Context, sessionID string, state *domain.TripState, ttl time.Duration) error {
	if f.durable != nil && !f.degraded.Load() {
		err := f.durable.PutState(ctx, sessionID, state, ttl)
		if !connectivity(err) {
			return err
		}
		f.markDegraded(err)
	}
	return f.fallback.PutState(ctx, sessionID, state, ttl)
}

// GetOwner reads ownership, falling back on failure.
func (f *Failover) GetOwner(ctx context.Context, sessionID string) (string, error) {
	if f.durable != nil && !f.degraded.Load() {
		owner, err := f.durable.GetOwner(ctx, sessionID)
		if !connectivity(err) {
			return owner, err
		}
		f.markDegraded(err)
	}
	return f.fallback.GetOwner(ctx, sessionID)
}

// SetOwner writes ownership, falling back on failure. Conflicts are a
// domain outcome and are never masked by the fallback.
func (f *Failover) SetOwner(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if f.durable != nil && !f.degraded.Load() {
		err := f.durable.SetOwner(ctx, sessionID, userID, ttl)
		if !connectivity(err) {
			return err
		}
		f.markDegraded(err)
	}
	return f.fallback.SetOwner(ctx, sessionID, userID, ttl)
}

// Delete removes entries from whichever backend is active. While healthy
// it also clears the fallback so a later degradation cannot resurrect a
// deleted session.
func (f *Failover) Delete(ctx context.Context, sessionID string) error {
	_ = f.fallback.Delete(ctx, sessionID)
	if f.durable != nil && !f.degraded.Load() {
		err := f.durable.Delete(ctx, sessionID)
		if !connectivity(err) {
			return err
		}
		f.markDegraded(err)
	}
	return nil
}

// Ping reflects the active backend. A degraded store still answers
// healthy, since the fallback keeps serving.
func (f *Failover) Ping(ctx context.Context) error {
	if f.durable != nil && !f.degraded.Load() {
		if err := f.durable.Ping(ctx); err != nil {
			f.markDegraded(err)
		}
	}
	return nil
}
