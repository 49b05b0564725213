package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrAuth is returned for missing or invalid credentials.
var ErrAuth = errors.New("authentication failed")

// ErrOwnership is returned when a session belongs to another user.
var ErrOwnership = errors.New("session owned by another user")

// ErrOwnershipConflict is returned by the store when an ownership record
// would be rewritten with a different owner. Records are immutable once set.
var ErrOwnershipConflict = errors.New("ownership record already set")

// ErrValidation is returned for malformed requests or preferences.
var ErrValidation = errors.New("invalid request")

// ErrStoreUnavailable signals the durable backend is unreachable. The
// failover store absorbs it; callers only ever see the degraded flag.
var ErrStoreUnavailable = errors.New("state store unavailable")

// ErrTurnInFlight is returned when a second turn is submitted for a
// session whose previous turn has not finished.
var ErrTurnInFlight = errors.New("a turn is already in flight for this session")

// ErrStreamAbort signals the client disconnected mid-stream.
var ErrStreamAbort = errors.New("client aborted stream")

// RateLimitError is returned when a client exceeds its request budget.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// UpstreamError classifies a specialist stage failure. Only transient
// failures are retried by the invoker.
type UpstreamError struct {
	Transient bool
	Err       error
}

func (e *UpstreamError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s upstream error: %v", kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable upstream failure.
func Transient(err error) *UpstreamError {
	return &UpstreamError{Transient: true, Err: err}
}

// Fatal wraps err as a non-retryable upstream failure.
func Fatal(err error) *UpstreamError {
	return &UpstreamError{Transient: false, Err: err}
}

// IsTransient reports whether err is a retryable upstream failure.
func IsTransient(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Transient
}

// IsFatalUpstream reports whether err is a non-retryable upstream failure.
func IsFatalUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && !ue.Transient
}
