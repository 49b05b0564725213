package domain

// EventType tags one streamed frame of a turn.
type EventType string

const (
	EventPlan         EventType = "plan"
	EventTaskStart    EventType = "task_start"
	EventThinking     EventType = "thinking"
	EventToken        EventType = "token"
	EventTaskComplete EventType = "task_complete"
	EventDone         EventType = "done"
	EventError        EventType = "error"
)

// Terminal reports whether this event type ends a stream.
func (t EventType) Terminal() bool {
	return t == EventDone || t == EventError
}

// TaskStatus is the progress-reporting status of one planned task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskActive  TaskStatus = "active"
	TaskDone    TaskStatus = "done"
	TaskError   TaskStatus = "error"
)

// Task is a transient per-turn descriptor used purely for progress
// reporting. It is never persisted beyond the turn.
type Task struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Status TaskStatus `json:"status"`
}

// UIDirective describes one interactive component the caller should
// present to the end user.
type UIDirective struct {
	Type     string         `json:"type"`
	Props    map[string]any `json:"props"`
	Required bool           `json:"required,omitempty"`
}

// Known UI directive types. The frontend renders components by type.
const (
	UIBudgetSlider      = "budget_slider"
	UIDateRangePicker   = "date_range_picker"
	UIPreferenceChips   = "preference_chips"
	UICompanionSelector = "companion_selector"
	UIItineraryCard     = "itinerary_card"
	UIQuickActions      = "quick_actions"
)

// StreamEvent is one frame of a streamed turn. Exactly one field set
// beyond Type is populated depending on the tag.
type StreamEvent struct {
	Type EventType `json:"type"`

	// plan
	Tasks []Task `json:"tasks,omitempty"`

	// task_start / task_complete
	TaskID string `json:"taskId,omitempty"`
	Label  string `json:"label,omitempty"`

	// thinking / error
	Message string `json:"message,omitempty"`

	// token
	Text string `json:"text,omitempty"`

	// done
	SessionID string       `json:"session_id,omitempty"`
	Response  string       `json:"response,omitempty"`
	UI        *UIDirective `json:"ui,omitempty"`
}

// PlanEvent builds the optional leading event announcing the turn's tasks.
func PlanEvent(tasks []Task) StreamEvent {
	return StreamEvent{Type: EventPlan, Tasks: tasks}
}

// TaskStartEvent marks a task as active.
func TaskStartEvent(id, label string) StreamEvent {
	return StreamEvent{Type: EventTaskStart, TaskID: id, Label: label}
}

// ThinkingEvent reports intermediate progress, including invoker
// attempt/backoff notices.
func ThinkingEvent(msg string) StreamEvent {
	return StreamEvent{Type: EventThinking, Message: msg}
}

// TokenEvent carries one increment of response text.
func TokenEvent(text string) StreamEvent {
	return StreamEvent{Type: EventToken, Text: text}
}

// TaskCompleteEvent marks a task as finished.
func TaskCompleteEvent(id string) StreamEvent {
	return StreamEvent{Type: EventTaskComplete, TaskID: id}
}

// DoneEvent is the successful terminal frame of a turn.
func DoneEvent(sessionID, response string, ui *UIDirective) StreamEvent {
	return StreamEvent{Type: EventDone, SessionID: sessionID, Response: response, UI: ui}
}

// ErrorEvent is the failed terminal frame of a turn. The message must be
// plain and non-technical; internal error kinds are never echoed.
func ErrorEvent(msg string) StreamEvent {
	return StreamEvent{Type: EventError, Message: msg}
}
