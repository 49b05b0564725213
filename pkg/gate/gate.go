// Package gate guards turn processing: it verifies session ownership and
// throttles request rate per client identity. Both checks run before any
// stage work begins.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/roamkit/roamkit/internal/logging"
	"github.com/roamkit/roamkit/internal/metrics"
	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/ports"
)

// idleEviction is how long an unused per-client limiter survives before
// being garbage collected.
const idleEviction = 10 * time.Minute

type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Gate performs ownership authorization and per-client rate limiting.
type Gate struct {
	store ports.StateStore
	ttl   time.Duration

	perMinute int
	burst     int

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Gate.
type Option func(*Gate)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// New creates a Gate. perMinute is the sustained request budget per
// client key, burst the short-term allowance. ttl bounds the lifetime of
// ownership records it creates.
func New(store ports.StateStore, perMinute, burst int, ttl time.Duration, opts ...Option) *Gate {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = perMinute
	}
	g := &Gate{
		store:     store,
		ttl:       ttl,
		perMinute: perMinute,
		burst:     burst,
		limiters:  make(map[string]*clientLimiter),
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize checks that userID may use sessionID. A new session gets an
// ownership record; a matching record succeeds; a record held by another
// user fails with domain.ErrOwnership. It has no side effect beyond the
// record creation.
func (g *Gate) Authorize(ctx context.Context, userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return fmt.Errorf("%w: user and session required", domain.ErrValidation)
	}

	err := g.store.SetOwner(ctx, sessionID, userID, g.ttl)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrOwnershipConflict) {
		g.logger.Warn("ownership check failed", "session_id", sessionID, "user_id", userID)
		return domain.ErrOwnership
	}
	return fmt.Errorf("ownership check: %w", err)
}

// RateCheck enforces the sliding request budget for one client key.
// Exceeding it returns a *domain.RateLimitError with a retry-after hint.
func (g *Gate) RateCheck(clientKey string) error {
	lim := g.limiterFor(clientKey)

	r := lim.Reserve()
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		metrics.RateLimited.Inc()
		return &domain.RateLimitError{RetryAfter: delay}
	}
	return nil
}

func (g *Gate) limiterFor(clientKey string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cl, ok := g.limiters[clientKey]
	if !ok {
		cl = &clientLimiter{
			lim: rate.NewLimiter(rate.Limit(float64(g.perMinute)/60.0), g.burst),
		}
		g.limiters[clientKey] = cl
		g.evictIdleLocked(now)
	}
	cl.lastSeen = now
	return cl.lim
}

// evictIdleLocked drops limiters not seen for idleEviction. Called with
// g.mu held, only when a new key is added, so steady traffic pays nothing.
func (g *Gate) evictIdleLocked(now time.Time) {
	for key, cl := range g.limiters {
		if now.Sub(cl.lastSeen) > idleEviction {
			delete(g.limiters, key)
		}
	}
}
