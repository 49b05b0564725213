// Package orchestrator drives the trip-planning workflow: it holds the
// phase state machine, runs the specialist stage for each phase through
// the resilient invoker, applies stage output as atomic patches to the
// session's trip state, and reports progress through the stream emitter.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roamkit/roamkit/internal/logging"
	"github.com/roamkit/roamkit/internal/metrics"
	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/invoker"
	"github.com/roamkit/roamkit/pkg/ports"
	"github.com/roamkit/roamkit/pkg/session"
)

// StageTable maps each phase to its specialist stage.
type StageTable map[domain.Phase]ports.Stage

// degradedReporter is satisfied by stores that can fall back to
// non-durable storage.
type degradedReporter interface {
	Degraded() bool
}

const degradedWarning = "Running on temporary storage; your plan may not survive a restart."

// Task labels shown in plan and task_start frames, keyed by stage phase.
var taskLabels = map[domain.Phase]string{
	domain.PhaseClarifying:  "Understanding your trip",
	domain.PhaseResearching: "Finding places",
	domain.PhaseFiltering:   "Picking activities",
	domain.PhaseBuilding:    "Building your itinerary",
	domain.PhaseComplete:    "Refining your plan",
	domain.PhaseRefining:    "Refining your plan",
}

// Orchestrator coordinates one turn at a time per session.
type Orchestrator struct {
	store    ports.StateStore
	stages   StageTable
	invoker  *invoker.Invoker
	sessions *session.Manager

	stateTTL    time.Duration
	turnTimeout time.Duration
	maxGap      time.Duration
	queueTurns  bool

	logger *slog.Logger
	newID  func() string
	now    func() time.Time
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithStateTTL sets the persistence time-to-live for session state.
func WithStateTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) { o.stateTTL = ttl }
}

// WithTurnTimeout bounds one whole turn across all its stages.
func WithTurnTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.turnTimeout = d
		}
	}
}

// WithMaxItineraryGap sets the largest tolerated idle window used when
// validating a built itinerary.
func WithMaxItineraryGap(d time.Duration) Option {
	return func(o *Orchestrator) { o.maxGap = d }
}

// WithQueuedTurns makes a second concurrent turn for the same session
// wait for the first instead of failing with ErrTurnInFlight.
func WithQueuedTurns(queue bool) Option {
	return func(o *Orchestrator) { o.queueTurns = queue }
}

// New creates an Orchestrator over the given store, stage table and
// invoker.
func New(store ports.StateStore, stages StageTable, inv *invoker.Invoker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		stages:      stages,
		invoker:     inv,
		sessions:    session.NewManager(),
		stateTTL:    7 * 24 * time.Hour,
		turnTimeout: 2 * time.Minute,
		maxGap:      domain.DefaultMaxGap,
		queueTurns:  true,
		logger:      logging.NewNop(),
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TurnInput is one authorized user message.
type TurnInput struct {
	SessionID string // empty means create a new session
	Message   string
}

// TurnResult mirrors the terminal done frame for the synchronous path.
type TurnResult struct {
	SessionID string
	Response  string
	UI        *domain.UIDirective
	Phase     domain.Phase
}

// Turn processes one message for a session, emitting progress frames and
// exactly one terminal frame through emit. Authorization and rate
// limiting must already have happened. The returned error reports
// pre-stage failures (unknown phase, lease conflict); stage failures are
// absorbed into the stream's terminal error frame.
func (o *Orchestrator) Turn(ctx context.Context, in TurnInput, emit ports.Emitter) (*TurnResult, error) {
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = o.newID()
	}

	release, err := o.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	metrics.TurnsInFlight.Inc()
	defer metrics.TurnsInFlight.Dec()

	ctx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	state, err := o.loadState(ctx, sessionID)
	if err != nil {
		o.logger.Error("state load failed", "session", sessionID, "err", err)
		emit.Emit(domain.ErrorEvent("I couldn't load your trip right now. Please try again."))
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	result := o.runTurn(ctx, sessionID, state, in.Message, emit)
	return result, nil
}

func (o *Orchestrator) acquire(ctx context.Context, sessionID string) (session.ReleaseFunc, error) {
	if o.queueTurns {
		return o.sessions.Begin(ctx, sessionID)
	}
	return o.sessions.TryBegin(sessionID)
}

func (o *Orchestrator) loadState(ctx context.Context, sessionID string) (*domain.TripState, error) {
	state, err := o.store.GetState(ctx, sessionID)
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, domain.ErrSessionNotFound):
		return domain.NewTripState(), nil
	default:
		return nil, err
	}
}

// runTurn executes the phase pipeline for one turn. The committed state
// advances task by task: each completed stage's patch is persisted
// before the next stage runs, so a mid-turn abort keeps prior progress.
func (o *Orchestrator) runTurn(ctx context.Context, sessionID string, state *domain.TripState, message string, emit ports.Emitter) *TurnResult {
	chain := o.plannedChain(state)
	emit.Emit(domain.PlanEvent(planTasks(chain)))

	working := state.Clone()
	if reporter, ok := o.store.(degradedReporter); ok && reporter.Degraded() {
		working.AddWarning(degradedWarning)
	}

	var (
		texts []string
		ui    *domain.UIDirective
	)

	for i, phase := range chain {
		stage, ok := o.stages[phase]
		if !ok {
			o.logger.Error("no stage for phase", "phase", phase)
			return o.fail(sessionID, emit, "I hit an internal snag. Please try again.")
		}

		taskID := fmt.Sprintf("task-%d", i+1)
		emit.Emit(domain.TaskStartEvent(taskID, taskLabels[phase]))

		res, err := o.invoker.Invoke(ctx, stage, working, message, emit)
		if err != nil {
			// Fatal or canceled: the failing stage's patch is never
			// applied. Progress persisted for earlier tasks remains.
			o.logger.Warn("stage failed", "stage", stage.Name(), "session", sessionID, "err", err)
			return o.fail(sessionID, emit, failureMessage(err))
		}

		applyPatch(working, res.Patch)
		working.LastUpdated = o.now()

		if res.Text != "" {
			texts = append(texts, res.Text)
			emit.Emit(domain.TokenEvent(res.Text))
		}
		ui = o.keepFirstUI(working, ui, res.UI)

		advanced := o.advance(working, phase)

		if err := o.store.PutState(ctx, sessionID, working, o.stateTTL); err != nil {
			o.logger.Error("state persist failed", "session", sessionID, "err", err)
			return o.fail(sessionID, emit, "I couldn't save your trip just now. Please try again.")
		}

		emit.Emit(domain.TaskCompleteEvent(taskID))

		// The chain continues only while transitions keep pace with it.
		if !advanced || i+1 >= len(chain) || working.Phase != chain[i+1] {
			break
		}
	}

	response := strings.Join(texts, "\n\n")
	emit.Emit(domain.DoneEvent(sessionID, response, ui))
	metrics.TurnsTotal.WithLabelValues("done").Inc()

	return &TurnResult{
		SessionID: sessionID,
		Response:  response,
		UI:        ui,
		Phase:     working.Phase,
	}
}

func (o *Orchestrator) fail(sessionID string, emit ports.Emitter, msg string) *TurnResult {
	emit.Emit(domain.ErrorEvent(msg))
	metrics.TurnsTotal.WithLabelValues("error").Inc()
	return &TurnResult{SessionID: sessionID, Response: msg}
}

// plannedChain predicts the stages this turn will run, assuming every
// transition fires. The clarifying and refinement phases always run
// alone: their outcome decides whether the next turn starts the
// research pipeline.
func (o *Orchestrator) plannedChain(state *domain.TripState) []domain.Phase {
	switch state.Phase {
	case domain.PhaseClarifying:
		return []domain.Phase{domain.PhaseClarifying}
	case domain.PhaseResearching:
		return []domain.Phase{domain.PhaseResearching, domain.PhaseFiltering, domain.PhaseBuilding}
	case domain.PhaseFiltering:
		return []domain.Phase{domain.PhaseFiltering, domain.PhaseBuilding}
	case domain.PhaseBuilding:
		return []domain.Phase{domain.PhaseBuilding}
	case domain.PhaseComplete, domain.PhaseRefining:
		return []domain.Phase{state.Phase}
	default:
		return []domain.Phase{domain.PhaseClarifying}
	}
}

func planTasks(chain []domain.Phase) []domain.Task {
	tasks := make([]domain.Task, len(chain))
	for i, phase := range chain {
		tasks[i] = domain.Task{
			ID:     fmt.Sprintf("task-%d", i+1),
			Label:  taskLabels[phase],
			Status: domain.TaskPending,
		}
	}
	return tasks
}

// advance evaluates the transition table for the phase just executed and
// mutates working.Phase accordingly. It reports whether a transition
// fired. No transition is not an error; the turn simply ends as a
// follow-up.
func (o *Orchestrator) advance(working *domain.TripState, ran domain.Phase) bool {
	switch ran {
	case domain.PhaseClarifying:
		if working.Preferences.Complete() {
			working.Phase = domain.PhaseResearching
			return true
		}

	case domain.PhaseResearching:
		collected := len(working.Hotels) > 0 && len(working.Restaurants) > 0 && len(working.Attractions) > 0
		if collected || working.NoResults {
			working.Phase = domain.PhaseFiltering
			return true
		}

	case domain.PhaseFiltering:
		if len(working.RecommendedActivities) > 0 {
			working.Phase = domain.PhaseBuilding
			return true
		}

	case domain.PhaseBuilding:
		if len(working.Itinerary) > 0 && domain.ValidateItinerary(working.Itinerary, o.maxGap) == nil {
			working.Phase = domain.PhaseComplete
			return true
		}

	case domain.PhaseComplete, domain.PhaseRefining:
		// A refinement that touched the itinerary passes through refining
		// and settles back on complete once the result re-validates.
		if len(working.Itinerary) > 0 {
			if err := domain.ValidateItinerary(working.Itinerary, o.maxGap); err != nil {
				working.AddWarning("The adjusted schedule has timing conflicts; tell me if you'd like it rebuilt.")
				working.Phase = domain.PhaseRefining
				return ran == domain.PhaseComplete
			}
		}
		working.Phase = domain.PhaseComplete
		return ran == domain.PhaseRefining
	}
	return false
}

// keepFirstUI enforces the one-directive-per-turn cap: the first
// directive wins, extras are dropped with a warning on state.
func (o *Orchestrator) keepFirstUI(working *domain.TripState, kept *domain.UIDirective, produced []domain.UIDirective) *domain.UIDirective {
	for i := range produced {
		if kept == nil {
			d := produced[i]
			kept = &d
			continue
		}
		working.AddWarning("Multiple interactive prompts were produced this turn; only the first was shown.")
		o.logger.Warn("extra ui directive dropped", "type", produced[i].Type)
		break
	}
	return kept
}

func applyPatch(state *domain.TripState, patch *ports.StatePatch) {
	if patch == nil {
		return
	}
	if patch.Preferences != nil {
		state.Preferences = *patch.Preferences
	}
	if patch.Hotels != nil {
		state.Hotels = patch.Hotels
	}
	if patch.Restaurants != nil {
		state.Restaurants = patch.Restaurants
	}
	if patch.Attractions != nil {
		state.Attractions = patch.Attractions
	}
	if patch.NoResults {
		state.NoResults = true
	}
	if patch.RecommendedActivities != nil {
		state.RecommendedActivities = patch.RecommendedActivities
	}
	if patch.Itinerary != nil {
		state.Itinerary = patch.Itinerary
	}
	for _, w := range patch.Warnings {
		state.AddWarning(w)
	}
}

// failureMessage maps internal failures to the plain wording shown to
// the user. Internal error kinds are never echoed.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "This is taking longer than expected. Please try again in a moment."
	case errors.Is(err, context.Canceled):
		return "The request was interrupted."
	default:
		return "Something went wrong while planning. Please try again."
	}
}

// CreateSession allocates a new session with an empty trip state so it
// can be fetched before the first message arrives.
func (o *Orchestrator) CreateSession(ctx context.Context) (string, error) {
	sessionID := o.newID()
	state := domain.NewTripState()
	state.LastUpdated = o.now()
	if err := o.store.PutState(ctx, sessionID, state, o.stateTTL); err != nil {
		return "", err
	}
	return sessionID, nil
}

// State returns the committed trip state for a session.
func (o *Orchestrator) State(ctx context.Context, sessionID string) (*domain.TripState, error) {
	return o.store.GetState(ctx, sessionID)
}

// DeleteSession evicts a session's state and ownership entries.
func (o *Orchestrator) DeleteSession(ctx context.Context, sessionID string) error {
	return o.store.Delete(ctx, sessionID)
}
