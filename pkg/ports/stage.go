package ports

import (
	"context"

	"github.com/roamkit/roamkit/pkg/domain"
)

// StatePatch is the mutation a stage wants applied to TripState. The
// orchestrator applies it as a single atomic patch; nil fields are left
// untouched.
type StatePatch struct {
	Preferences *domain.Preferences

	Hotels      []domain.Place
	Restaurants []domain.Place
	Attractions []domain.Place
	NoResults   bool

	RecommendedActivities []domain.Place

	Itinerary []domain.ItineraryDay

	Warnings []string
}

// StageResult is the output of one specialist invocation: response text,
// an optional state patch, and zero or more UI directives. The
// orchestrator keeps at most one directive per turn.
type StageResult struct {
	Text  string
	Patch *StatePatch
	UI    []domain.UIDirective
}

// Empty reports whether the stage produced nothing usable. Empty output
// is a handled failure mode, not an anomaly: the invoker maps it to a
// placeholder acknowledgment.
func (r *StageResult) Empty() bool {
	return r == nil || (r.Text == "" && r.Patch == nil && len(r.UI) == 0)
}

// Stage is one unit of specialist trip-planning reasoning. Each workflow
// phase maps to one Stage implementation via a table lookup. A Stage may
// fail with a *domain.UpstreamError to signal retryability.
type Stage interface {
	// Name is the stable identifier used for task labels and logging.
	Name() string

	// Run executes the specialist against a read-only snapshot of state.
	// Implementations must not mutate state; all changes go through the
	// returned patch.
	Run(ctx context.Context, state *domain.TripState, message string) (*StageResult, error)
}

// Emitter is the ordered per-turn event sink fed by the orchestrator and
// the invoker. Implementations enforce the stream grammar.
type Emitter interface {
	Emit(event domain.StreamEvent)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(domain.StreamEvent)

func (f EmitterFunc) Emit(e domain.StreamEvent) { f(e) }

// TokenVerifier maps a bearer token to a user identity. Identity
// verification internals are a collaborator concern.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

// PlaceFinder looks up places for a destination. It is consumed only by
// stage implementations and is opaque to the orchestration core.
type PlaceFinder interface {
	Find(ctx context.Context, destination string, kind domain.PlaceKind) ([]domain.Place, error)
}
