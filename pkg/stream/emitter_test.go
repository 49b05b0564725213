package stream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamkit/roamkit/pkg/domain"
)

func emitTurn(e *Emitter) {
	e.Emit(domain.PlanEvent([]domain.Task{{ID: "t1", Label: "Research", Status: domain.TaskPending}}))
	e.Emit(domain.TaskStartEvent("t1", "Research"))
	e.Emit(domain.ThinkingEvent("looking up places"))
	e.Emit(domain.TokenEvent("Here "))
	e.Emit(domain.TaskCompleteEvent("t1"))
	e.Emit(domain.DoneEvent("s1", "Here you go", nil))
}

func TestEmitter_HappyPathOrder(t *testing.T) {
	c := &Collector{}
	e := New(c)

	emitTurn(e)

	events := c.Events()
	require.Len(t, events, 6)
	want := []domain.EventType{
		domain.EventPlan, domain.EventTaskStart, domain.EventThinking,
		domain.EventToken, domain.EventTaskComplete, domain.EventDone,
	}
	for i, typ := range want {
		assert.Equal(t, typ, events[i].Type, "frame %d", i)
	}
	assert.True(t, e.Terminated())
}

func TestEmitter_ExactlyOneTerminal(t *testing.T) {
	c := &Collector{}
	e := New(c)

	e.Emit(domain.DoneEvent("s1", "ok", nil))
	e.Emit(domain.ErrorEvent("late failure"))
	e.Emit(domain.TokenEvent("stray"))

	events := c.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventDone, events[0].Type)
}

func TestEmitter_SinglePlanOnlyLeading(t *testing.T) {
	c := &Collector{}
	e := New(c)

	e.Emit(domain.PlanEvent(nil))
	e.Emit(domain.PlanEvent(nil)) // dropped: repeated
	e.Emit(domain.TaskStartEvent("t1", ""))
	e.Emit(domain.TaskCompleteEvent("t1"))
	e.Emit(domain.PlanEvent(nil)) // dropped: after tasks began

	planCount := 0
	for _, ev := range c.Events() {
		if ev.Type == domain.EventPlan {
			planCount++
		}
	}
	assert.Equal(t, 1, planCount)
}

func TestEmitter_OneActiveTaskNoRepeats(t *testing.T) {
	c := &Collector{}
	e := New(c)

	e.Emit(domain.TaskStartEvent("t1", ""))
	e.Emit(domain.TaskStartEvent("t2", "")) // dropped: t1 still active
	e.Emit(domain.TaskCompleteEvent("t2"))  // dropped: not active
	e.Emit(domain.TaskCompleteEvent("t1"))
	e.Emit(domain.TaskStartEvent("t1", "")) // dropped: id repeated
	e.Emit(domain.TaskStartEvent("t2", ""))
	e.Emit(domain.TaskCompleteEvent("t2"))

	var starts []string
	for _, ev := range c.Events() {
		if ev.Type == domain.EventTaskStart {
			starts = append(starts, ev.TaskID)
		}
	}
	assert.Equal(t, []string{"t1", "t2"}, starts)
}

func TestEmitter_StopsOnTransportError(t *testing.T) {
	sent := 0
	sink := SinkFunc(func(ev domain.StreamEvent) error {
		sent++
		if sent > 2 {
			return errors.New("broken pipe")
		}
		return nil
	})
	e := New(sink)

	e.Emit(domain.TaskStartEvent("t1", ""))
	e.Emit(domain.TokenEvent("a"))
	e.Emit(domain.TokenEvent("b")) // sink fails here
	e.Emit(domain.TokenEvent("c")) // dropped silently
	e.Emit(domain.DoneEvent("s1", "", nil))

	assert.True(t, e.Aborted())
	assert.False(t, e.Terminated(), "terminal never reached the wire")
	assert.Equal(t, 3, sent, "no frames attempted after the transport failed")
}

func TestCollector_Terminal(t *testing.T) {
	c := &Collector{}
	e := New(c)

	emitTurn(e)

	term, ok := c.Terminal()
	require.True(t, ok)
	assert.Equal(t, domain.EventDone, term.Type)
	assert.Equal(t, "s1", term.SessionID)
}
