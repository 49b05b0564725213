package domain

// Phase identifies the session's current position in the planning workflow.
type Phase string

const (
	PhaseClarifying  Phase = "clarifying"
	PhaseResearching Phase = "researching"
	PhaseFiltering   Phase = "filtering"
	PhaseBuilding    Phase = "building"
	PhaseComplete    Phase = "complete"
	PhaseRefining    Phase = "refining"
)

// Valid reports whether p is one of the known workflow phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseClarifying, PhaseResearching, PhaseFiltering, PhaseBuilding, PhaseComplete, PhaseRefining:
		return true
	}
	return false
}

// Terminal reports whether the workflow has produced a full itinerary.
// A complete session can still loop back through refining.
func (p Phase) Terminal() bool {
	return p == PhaseComplete
}
