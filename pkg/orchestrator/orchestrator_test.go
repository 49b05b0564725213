package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamkit/roamkit/pkg/adapters/memstore"
	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/invoker"
	"github.com/roamkit/roamkit/pkg/ports"
	"github.com/roamkit/roamkit/pkg/stages"
	"github.com/roamkit/roamkit/pkg/stream"
)

func newTestOrchestrator(t *testing.T, table StageTable) (*Orchestrator, *memstore.Store) {
	t.Helper()
	store := memstore.NewStore()
	inv := invoker.New(invoker.WithBackoff(time.Millisecond, 0))
	return New(store, table, inv), store
}

func defaultTable() StageTable {
	return StageTable(stages.Default(stages.NewCatalog()))
}

func runTurn(t *testing.T, o *Orchestrator, sessionID, message string) (*TurnResult, *stream.Collector) {
	t.Helper()
	collector := &stream.Collector{}
	emitter := stream.New(collector)
	res, err := o.Turn(context.Background(), TurnInput{SessionID: sessionID, Message: message}, emitter)
	require.NoError(t, err)
	return res, collector
}

func TestNewSessionStaysClarifyingAndAsksForDates(t *testing.T) {
	o, _ := newTestOrchestrator(t, defaultTable())

	res, collector := runTurn(t, o, "", "Plan a trip to Mumbai")

	assert.Equal(t, domain.PhaseClarifying, res.Phase)
	require.NotNil(t, res.UI)
	assert.Equal(t, domain.UIDateRangePicker, res.UI.Type)

	terminal, ok := collector.Terminal()
	require.True(t, ok)
	assert.Equal(t, domain.EventDone, terminal.Type)
	require.NotNil(t, terminal.UI)
	assert.Equal(t, domain.UIDateRangePicker, terminal.UI.Type)
}

func TestPreferencesAutoAdvancePhase(t *testing.T) {
	o, _ := newTestOrchestrator(t, defaultTable())

	res, _ := runTurn(t, o, "", "I want to visit Tokyo")
	sessionID := res.SessionID
	assert.Equal(t, domain.PhaseClarifying, res.Phase)

	res, _ = runTurn(t, o, sessionID, "2026-04-01 to 2026-04-04")
	assert.Equal(t, domain.PhaseClarifying, res.Phase)

	res, _ = runTurn(t, o, sessionID, "budget around 4000, going with my wife")
	assert.Equal(t, domain.PhaseResearching, res.Phase)
}

func TestFullPipelineReachesComplete(t *testing.T) {
	o, store := newTestOrchestrator(t, defaultTable())

	res, _ := runTurn(t, o, "", "Plan a 3-day trip to Tokyo, budget around 4000, with my wife, we love history and food")
	require.Equal(t, domain.PhaseResearching, res.Phase)

	res, collector := runTurn(t, o, res.SessionID, "sounds good, go ahead")
	assert.Equal(t, domain.PhaseComplete, res.Phase)
	require.NotNil(t, res.UI)
	assert.Equal(t, domain.UIItineraryCard, res.UI.Type)

	state, err := store.GetState(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, state.Itinerary)
	require.NoError(t, domain.ValidateItinerary(state.Itinerary, domain.DefaultMaxGap))

	// The pipeline turn ran research, filter and build as separate tasks.
	var started []string
	for _, e := range collector.Events() {
		if e.Type == domain.EventTaskStart {
			started = append(started, e.TaskID)
		}
	}
	assert.Equal(t, []string{"task-1", "task-2", "task-3"}, started)
}

func TestExactlyOneTerminalEvent(t *testing.T) {
	o, _ := newTestOrchestrator(t, defaultTable())

	_, collector := runTurn(t, o, "", "Plan a trip to Mumbai")

	terminals := 0
	events := collector.Events()
	for _, e := range events {
		if e.Type.Terminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
	assert.True(t, events[len(events)-1].Type.Terminal())
}

type fatalStage struct{ name string }

func (s fatalStage) Name() string { return s.name }
func (s fatalStage) Run(context.Context, *domain.TripState, string) (*ports.StageResult, error) {
	return nil, domain.Fatal(errors.New("malformed request"))
}

func TestFatalStageLeavesStateUntouched(t *testing.T) {
	table := defaultTable()
	table[domain.PhaseResearching] = fatalStage{name: "researcher"}
	o, store := newTestOrchestrator(t, table)

	res, _ := runTurn(t, o, "", "Plan a 3-day trip to Tokyo, budget around 4000, with my wife")
	require.Equal(t, domain.PhaseResearching, res.Phase)

	before, err := store.GetState(context.Background(), res.SessionID)
	require.NoError(t, err)
	beforeJSON, err := json.Marshal(before)
	require.NoError(t, err)

	_, collector := runTurn(t, o, res.SessionID, "go ahead")
	terminal, ok := collector.Terminal()
	require.True(t, ok)
	assert.Equal(t, domain.EventError, terminal.Type)
	assert.NotContains(t, terminal.Message, "malformed")

	after, err := store.GetState(context.Background(), res.SessionID)
	require.NoError(t, err)
	afterJSON, err := json.Marshal(after)
	require.NoError(t, err)
	assert.Equal(t, string(beforeJSON), string(afterJSON))
}

type flakyStage struct {
	inner    ports.Stage
	mu       sync.Mutex
	failures int
}

func (s *flakyStage) Name() string { return s.inner.Name() }
func (s *flakyStage) Run(ctx context.Context, state *domain.TripState, message string) (*ports.StageResult, error) {
	s.mu.Lock()
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()
	if fail {
		return nil, domain.Transient(errors.New("overloaded"))
	}
	return s.inner.Run(ctx, state, message)
}

func TestTransientFailuresRecoverWithinTurn(t *testing.T) {
	table := defaultTable()
	table[domain.PhaseClarifying] = &flakyStage{
		inner:    stages.NewClarifier(),
		failures: 2,
	}
	o, _ := newTestOrchestrator(t, table)

	res, collector := runTurn(t, o, "", "Plan a trip to Mumbai")

	terminal, ok := collector.Terminal()
	require.True(t, ok)
	assert.Equal(t, domain.EventDone, terminal.Type)
	assert.Equal(t, domain.PhaseClarifying, res.Phase)
	require.NotNil(t, res.UI)

	// Retries were visible as thinking frames and nothing was applied twice.
	thinking := 0
	for _, e := range collector.Events() {
		if e.Type == domain.EventThinking {
			thinking++
		}
	}
	assert.Equal(t, 2, thinking)
}

type multiUIStage struct{}

func (multiUIStage) Name() string { return "clarifier" }
func (multiUIStage) Run(context.Context, *domain.TripState, string) (*ports.StageResult, error) {
	return &ports.StageResult{
		Text: "Two questions at once.",
		UI: []domain.UIDirective{
			{Type: domain.UIDateRangePicker},
			{Type: domain.UIBudgetSlider},
		},
	}, nil
}

func TestSingleUIDirectivePerTurn(t *testing.T) {
	table := defaultTable()
	table[domain.PhaseClarifying] = multiUIStage{}
	o, store := newTestOrchestrator(t, table)

	res, _ := runTurn(t, o, "", "hello")

	require.NotNil(t, res.UI)
	assert.Equal(t, domain.UIDateRangePicker, res.UI.Type)

	state, err := store.GetState(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, state.Warnings)
}

type stalledStage struct{}

func (stalledStage) Name() string { return "clarify" }
func (stalledStage) Run(ctx context.Context, _ *domain.TripState, _ string) (*ports.StageResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTurnTimeoutEmitsTerminalErrorAndReleasesLease(t *testing.T) {
	table := defaultTable()
	table[domain.PhaseClarifying] = stalledStage{}

	store := memstore.NewStore()
	inv := invoker.New(invoker.WithBackoff(time.Millisecond, 0))
	o := New(store, table, inv, WithTurnTimeout(50*time.Millisecond))

	sessionID := "sess-timeout"
	collector := &stream.Collector{}
	res, err := o.Turn(context.Background(), TurnInput{SessionID: sessionID, Message: "trip to Mumbai"}, stream.New(collector))
	require.NoError(t, err)

	terminal, ok := collector.Terminal()
	require.True(t, ok, "a timed-out turn must still end with a terminal frame")
	assert.Equal(t, domain.EventError, terminal.Type)
	assert.Contains(t, res.Response, "taking longer")

	// The lease must be free again once the turn has ended.
	release, err := o.sessions.TryBegin(sessionID)
	require.NoError(t, err)
	release()
}

type slowStage struct {
	inner   ports.Stage
	entered chan struct{}
	release chan struct{}
}

func (s *slowStage) Name() string { return s.inner.Name() }
func (s *slowStage) Run(ctx context.Context, state *domain.TripState, message string) (*ports.StageResult, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.inner.Run(ctx, state, message)
}

func TestConcurrentTurnsAreSerialized(t *testing.T) {
	slow := &slowStage{
		inner:   stages.NewClarifier(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	table := defaultTable()
	table[domain.PhaseClarifying] = slow
	o, _ := newTestOrchestrator(t, table)

	sessionID := "sess-serial"
	first := make(chan *TurnResult, 1)
	go func() {
		res, _ := o.Turn(context.Background(), TurnInput{SessionID: sessionID, Message: "trip to Mumbai"}, stream.New(&stream.Collector{}))
		first <- res
	}()
	<-slow.entered

	second := make(chan *TurnResult, 1)
	go func() {
		res, _ := o.Turn(context.Background(), TurnInput{SessionID: sessionID, Message: "4 days please"}, stream.New(&stream.Collector{}))
		second <- res
	}()

	// The second turn must be waiting on the lease, not running.
	select {
	case <-second:
		t.Fatal("second turn ran concurrently with the first")
	case <-time.After(50 * time.Millisecond):
	}

	close(slow.release)
	res1 := <-first
	res2 := <-second
	require.NotNil(t, res1)
	require.NotNil(t, res2)

	// Both turns' writes landed: dates from the second on top of the first.
	state, err := o.State(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, "Mumbai, India", state.Preferences.Destination)
	require.NotNil(t, state.Preferences.Dates)
	assert.Equal(t, 4, state.Preferences.Dates.DurationDays)
}

func TestFailFastConflictWhenQueueingDisabled(t *testing.T) {
	slow := &slowStage{
		inner:   stages.NewClarifier(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	table := defaultTable()
	table[domain.PhaseClarifying] = slow
	store := memstore.NewStore()
	o := New(store, table, invoker.New(), WithQueuedTurns(false))

	sessionID := "sess-conflict"
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Turn(context.Background(), TurnInput{SessionID: sessionID, Message: "trip to Goa"}, stream.New(&stream.Collector{}))
	}()
	<-slow.entered

	_, err := o.Turn(context.Background(), TurnInput{SessionID: sessionID, Message: "again"}, stream.New(&stream.Collector{}))
	assert.ErrorIs(t, err, domain.ErrTurnInFlight)

	close(slow.release)
	<-done
}

func TestRefinementLoopsBackToComplete(t *testing.T) {
	o, store := newTestOrchestrator(t, defaultTable())

	res, _ := runTurn(t, o, "", "Plan a 3-day trip to Tokyo, budget around 4000, with my wife, we love history")
	res, _ = runTurn(t, o, res.SessionID, "go ahead")
	require.Equal(t, domain.PhaseComplete, res.Phase)

	state, err := store.GetState(context.Background(), res.SessionID)
	require.NoError(t, err)
	require.NotEmpty(t, state.Itinerary)
	target := state.Itinerary[0].Activities[0].Place.Name

	res, _ = runTurn(t, o, res.SessionID, "please remove "+target)
	assert.Equal(t, domain.PhaseComplete, res.Phase)

	after, err := store.GetState(context.Background(), res.SessionID)
	require.NoError(t, err)
	for _, day := range after.Itinerary {
		for _, act := range day.Activities {
			assert.NotEqual(t, target, act.Place.Name)
		}
	}
}

func TestDegradedStoreWarnsOnState(t *testing.T) {
	o, _ := newTestOrchestrator(t, defaultTable())
	o.store = degradedStore{StateStore: memstore.NewStore()}

	res, _ := runTurn(t, o, "", "Plan a trip to Mumbai")

	state, err := o.State(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Contains(t, state.Warnings, degradedWarning)
}

type degradedStore struct{ ports.StateStore }

func (degradedStore) Degraded() bool { return true }

func TestDeleteSessionEvictsState(t *testing.T) {
	o, store := newTestOrchestrator(t, defaultTable())

	res, _ := runTurn(t, o, "", "Plan a trip to Mumbai")
	require.NoError(t, o.DeleteSession(context.Background(), res.SessionID))

	_, err := store.GetState(context.Background(), res.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
