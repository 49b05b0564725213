// Package stream sequences the events of one turn into the ordered push
// protocol: an optional plan, per-task start/progress/complete frames,
// and exactly one terminal done or error frame.
package stream

import (
	"log/slog"
	"sync"

	"github.com/roamkit/roamkit/internal/logging"
	"github.com/roamkit/roamkit/pkg/domain"
)

// Sink receives validated frames. A returned error means the transport
// is gone; the emitter stops producing but does not undo state already
// committed for completed tasks.
type Sink interface {
	Send(event domain.StreamEvent) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(domain.StreamEvent) error

func (f SinkFunc) Send(e domain.StreamEvent) error { return f(e) }

// Emitter enforces the stream grammar for one turn:
//
//	plan? (task_start (thinking|token)* task_complete)* (done|error)
//
// Only one task may be active at a time, no task id repeats, and no
// event follows the terminal one. Violations are dropped and logged,
// never forwarded.
type Emitter struct {
	mu sync.Mutex

	sink   Sink
	logger *slog.Logger

	planSent   bool
	activeTask string
	seenTasks  map[string]bool
	terminal   bool
	aborted    bool
}

// Option configures the Emitter.
type Option func(*Emitter)

// WithLogger configures a logger for grammar violations.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		e.logger = logger
	}
}

// New creates an Emitter writing to sink.
func New(sink Sink, opts ...Option) *Emitter {
	e := &Emitter{
		sink:      sink,
		logger:    logging.NewNop(),
		seenTasks: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit validates the event against the grammar and forwards it.
// Implements ports.Emitter.
func (e *Emitter) Emit(event domain.StreamEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminal {
		e.logger.Warn("event after terminal dropped", "type", event.Type)
		return
	}
	if e.aborted {
		return
	}
	if !e.admit(event) {
		return
	}

	if err := e.sink.Send(event); err != nil {
		// Transport interrupted mid-stream: stop producing. Committed
		// task mutations stay applied (at-least-once for partial turns).
		e.aborted = true
		e.logger.Info("stream transport interrupted", "err", err)
		return
	}

	e.record(event)
}

// admit checks grammar preconditions without mutating emitter state.
func (e *Emitter) admit(event domain.StreamEvent) bool {
	switch event.Type {
	case domain.EventPlan:
		if e.planSent || len(e.seenTasks) > 0 {
			e.logger.Warn("plan event dropped: must be the single leading event")
			return false
		}
	case domain.EventTaskStart:
		if e.activeTask != "" {
			e.logger.Warn("task_start dropped: another task is active", "active", e.activeTask, "task", event.TaskID)
			return false
		}
		if e.seenTasks[event.TaskID] {
			e.logger.Warn("task_start dropped: task id repeated", "task", event.TaskID)
			return false
		}
	case domain.EventTaskComplete:
		if e.activeTask != event.TaskID {
			e.logger.Warn("task_complete dropped: task not active", "task", event.TaskID)
			return false
		}
	case domain.EventThinking, domain.EventToken:
		// Progress frames are allowed any time before the terminal event.
	case domain.EventDone, domain.EventError:
		// Admission for terminal events is the terminal flag, checked above.
	default:
		e.logger.Warn("unknown event type dropped", "type", event.Type)
		return false
	}
	return true
}

func (e *Emitter) record(event domain.StreamEvent) {
	switch event.Type {
	case domain.EventPlan:
		e.planSent = true
	case domain.EventTaskStart:
		e.activeTask = event.TaskID
		e.seenTasks[event.TaskID] = true
	case domain.EventTaskComplete:
		e.activeTask = ""
	case domain.EventDone, domain.EventError:
		e.terminal = true
	}
}

// Terminated reports whether the terminal event has been emitted.
func (e *Emitter) Terminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminal
}

// Aborted reports whether the transport went away mid-stream.
func (e *Emitter) Aborted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aborted
}

// Collector is a Sink that records every frame, used by the synchronous
// response path and by tests.
type Collector struct {
	mu     sync.Mutex
	events []domain.StreamEvent
}

// Send implements Sink.
func (c *Collector) Send(e domain.StreamEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

// Events returns a snapshot of the recorded frames.
func (c *Collector) Events() []domain.StreamEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.StreamEvent(nil), c.events...)
}

// Terminal returns the terminal frame, if one was recorded.
func (c *Collector) Terminal() (domain.StreamEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.Type.Terminal() {
			return e, true
		}
	}
	return domain.StreamEvent{}, false
}
