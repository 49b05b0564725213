package stages

import (
	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/ports"
)

// Registry maps workflow phases to their specialist stage. The
// orchestrator looks up exactly one stage per turn.
type Registry map[domain.Phase]ports.Stage

// Default wires the built-in specialists, with complete and refining
// both served by the refiner so post-completion edits reuse the same
// stage.
func Default(finder ports.PlaceFinder) Registry {
	refiner := NewRefiner()
	return Registry{
		domain.PhaseClarifying:  NewClarifier(),
		domain.PhaseResearching: NewResearcher(finder),
		domain.PhaseFiltering:   NewActivityFilter(),
		domain.PhaseBuilding:    NewScheduleBuilder(),
		domain.PhaseComplete:    refiner,
		domain.PhaseRefining:    refiner,
	}
}

// For returns the stage registered for the phase.
func (r Registry) For(phase domain.Phase) (ports.Stage, bool) {
	s, ok := r[phase]
	return s, ok
}
