package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/ports"
)

// Refiner applies targeted edits to a finished itinerary: removing a
// stop, swapping it for an alternative, or shifting it to another slot.
// Requests it cannot map to an edit get a clarifying reply instead of a
// guess.
type Refiner struct{}

// NewRefiner creates the refiner stage.
func NewRefiner() *Refiner { return &Refiner{} }

func (r *Refiner) Name() string { return "refiner" }

func (r *Refiner) Run(ctx context.Context, state *domain.TripState, message string) (*ports.StageResult, error) {
	lower := strings.ToLower(message)

	switch {
	case anyWord(lower, "remove", "drop", "delete", "skip", "cancel"):
		return r.remove(state, lower)
	case anyWord(lower, "swap", "replace", "different", "instead", "another"):
		return r.swap(state, lower)
	case anyWord(lower, "earlier", "later", "move", "reschedule", "morning", "evening", "afternoon"):
		return r.reschedule(state, lower)
	}

	return &ports.StageResult{
		Text: "I can remove a stop, swap it for something else, or move it to a different time. Which would you like?",
	}, nil
}

// findActivity locates the activity the message refers to by place name
// match. Returns day index, activity index, or -1s.
func findActivity(state *domain.TripState, lower string) (int, int) {
	for di, day := range state.Itinerary {
		for ai, act := range day.Activities {
			if strings.Contains(lower, strings.ToLower(act.Place.Name)) {
				return di, ai
			}
		}
	}
	return -1, -1
}

func (r *Refiner) remove(state *domain.TripState, lower string) (*ports.StageResult, error) {
	di, ai := findActivity(state, lower)
	if di < 0 {
		return &ports.StageResult{
			Text: "Which stop should I remove? Tell me the place name.",
		}, nil
	}

	itinerary := cloneItinerary(state.Itinerary)
	removed := itinerary[di].Activities[ai].Place.Name
	itinerary[di].Activities = append(
		itinerary[di].Activities[:ai],
		itinerary[di].Activities[ai+1:]...)

	return &ports.StageResult{
		Text:  fmt.Sprintf("Done, I removed %s from day %d.", removed, itinerary[di].Day),
		Patch: &ports.StatePatch{Itinerary: itinerary},
	}, nil
}

func (r *Refiner) swap(state *domain.TripState, lower string) (*ports.StageResult, error) {
	di, ai := findActivity(state, lower)
	if di < 0 {
		return &ports.StageResult{
			Text: "Which stop should I swap out? Tell me the place name.",
		}, nil
	}

	replacement, ok := pickReplacement(state, state.Itinerary[di].Activities[ai].Place)
	if !ok {
		return &ports.StageResult{
			Text: "I don't have a good alternative on hand. Want me to remove it instead, or search for more places?",
		}, nil
	}

	itinerary := cloneItinerary(state.Itinerary)
	old := itinerary[di].Activities[ai].Place.Name
	itinerary[di].Activities[ai].Place = replacement
	itinerary[di].Activities[ai].DurationMinutes = activityDuration(replacement)

	return &ports.StageResult{
		Text:  fmt.Sprintf("Swapped %s for %s on day %d.", old, replacement.Name, itinerary[di].Day),
		Patch: &ports.StatePatch{Itinerary: itinerary},
	}, nil
}

func (r *Refiner) reschedule(state *domain.TripState, lower string) (*ports.StageResult, error) {
	di, ai := findActivity(state, lower)
	if di < 0 {
		return &ports.StageResult{
			Text: "Which stop should I move? Tell me the place name and roughly when you'd like it.",
		}, nil
	}

	itinerary := cloneItinerary(state.Itinerary)
	act := &itinerary[di].Activities[ai]

	target := "10:00"
	switch {
	case strings.Contains(lower, "morning") || strings.Contains(lower, "earlier"):
		target = "09:00"
	case strings.Contains(lower, "afternoon"):
		target = "14:00"
	case strings.Contains(lower, "evening") || strings.Contains(lower, "later"):
		target = "18:00"
	}

	start := mustClock(target)
	start = alignToOpening(start, act.Place.Hours)
	act.Start = formatClock(start)
	act.End = formatClock(start + act.DurationMinutes)

	return &ports.StageResult{
		Text:  fmt.Sprintf("Moved %s to %s on day %d.", act.Place.Name, act.Start, itinerary[di].Day),
		Patch: &ports.StatePatch{Itinerary: itinerary},
	}, nil
}

// pickReplacement chooses the highest-scored recommended activity not
// already scheduled anywhere in the itinerary.
func pickReplacement(state *domain.TripState, current domain.Place) (domain.Place, bool) {
	scheduled := map[string]bool{current.ID: true}
	for _, day := range state.Itinerary {
		for _, act := range day.Activities {
			scheduled[act.Place.ID] = true
		}
	}
	for _, p := range state.RecommendedActivities {
		if !scheduled[p.ID] {
			return p, true
		}
	}
	return domain.Place{}, false
}

func cloneItinerary(in []domain.ItineraryDay) []domain.ItineraryDay {
	out := make([]domain.ItineraryDay, len(in))
	for i, d := range in {
		day := d
		day.Activities = append([]domain.ScheduledActivity(nil), d.Activities...)
		out[i] = day
	}
	return out
}
