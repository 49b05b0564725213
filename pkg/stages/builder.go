package stages

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/ports"
)

// Pace caps: maximum scheduled activities per day.
var paceCaps = map[domain.TravelPace]int{
	domain.PaceRelaxed:  4,
	domain.PaceModerate: 5,
	domain.PacePacked:   6,
}

// Default activity durations in minutes when a place carries no hint.
var defaultDurations = map[domain.PlaceKind]int{
	domain.PlaceAttraction: 120,
	domain.PlaceRestaurant: 90,
	domain.PlaceHotel:      0,
}

const (
	dayStartClock = "09:00"
	dayEndClock   = "21:00"
	slotBuffer    = 15 // minutes between activities, on top of travel
)

// ScheduleBuilder turns the recommended activities into a time-slotted
// day-by-day itinerary honoring the pace cap, opening hours and travel
// time between consecutive stops.
type ScheduleBuilder struct{}

// NewScheduleBuilder creates the builder stage.
func NewScheduleBuilder() *ScheduleBuilder { return &ScheduleBuilder{} }

func (b *ScheduleBuilder) Name() string { return "schedule_builder" }

func (b *ScheduleBuilder) Run(ctx context.Context, state *domain.TripState, message string) (*ports.StageResult, error) {
	days := tripDays(state.Preferences)
	if days <= 0 {
		days = 3
	}

	cap := paceCaps[state.Preferences.Pace]
	if cap == 0 {
		cap = paceCaps[domain.PaceModerate]
	}

	pool := append([]domain.Place(nil), state.RecommendedActivities...)
	if len(pool) == 0 {
		return &ports.StageResult{
			Text: "I don't have enough activities to build a schedule yet. Let me know if you'd like me to search again.",
		}, nil
	}

	itinerary := make([]domain.ItineraryDay, 0, days)
	idx := 0
	for d := 1; d <= days && idx < len(pool); d++ {
		day := domain.ItineraryDay{Day: d, Activities: []domain.ScheduledActivity{}}
		if state.Preferences.Dates != nil && state.Preferences.Dates.Start != "" {
			if t, err := time.Parse("2006-01-02", state.Preferences.Dates.Start); err == nil {
				day.Date = t.AddDate(0, 0, d-1).Format("2006-01-02")
			}
		}

		clock := mustClock(dayStartClock)
		dayEnd := mustClock(dayEndClock)
		var prev *domain.Place

		for len(day.Activities) < cap && idx < len(pool) {
			place := pool[idx]

			travel := 0
			if prev != nil {
				travel = travelEstimate(prev, &place)
			}
			start := clock + travel
			if prev != nil {
				start += slotBuffer
			}
			start = alignToOpening(start, place.Hours)

			dur := activityDuration(place)
			if start+dur > dayEnd {
				break
			}

			day.Activities = append(day.Activities, domain.ScheduledActivity{
				Start:           formatClock(start),
				End:             formatClock(start + dur),
				DurationMinutes: dur,
				Place:           place,
				TravelMinutes:   travel,
			})
			day.TotalTravelMinutes += travel
			clock = start + dur
			prev = &pool[idx]
			idx++
		}

		if len(day.Activities) > 0 {
			day.Theme = dayTheme(day.Activities)
			itinerary = append(itinerary, day)
		}
	}

	if len(itinerary) == 0 {
		return &ports.StageResult{
			Text: "I couldn't fit your activities into the available days. Try a longer trip or a more packed pace.",
		}, nil
	}

	return &ports.StageResult{
		Text: fmt.Sprintf("Your %d-day itinerary for %s is ready! %d activities scheduled. Tell me if you'd like to swap or re-time anything.",
			len(itinerary), state.Preferences.Destination, idx),
		Patch: &ports.StatePatch{Itinerary: itinerary},
		UI: []domain.UIDirective{{
			Type:  domain.UIItineraryCard,
			Props: map[string]any{"days": len(itinerary)},
		}},
	}, nil
}

func tripDays(p domain.Preferences) int {
	if p.Dates == nil {
		return 0
	}
	if p.Dates.DurationDays > 0 {
		return p.Dates.DurationDays
	}
	if p.Dates.Start != "" && p.Dates.End != "" {
		start, err1 := time.Parse("2006-01-02", p.Dates.Start)
		end, err2 := time.Parse("2006-01-02", p.Dates.End)
		if err1 == nil && err2 == nil && !end.Before(start) {
			return int(end.Sub(start).Hours()/24) + 1
		}
	}
	return 0
}

func activityDuration(p domain.Place) int {
	if d, ok := defaultDurations[p.Kind]; ok && d > 0 {
		return d
	}
	return 120
}

// travelEstimate approximates door-to-door minutes between two places.
// With coordinates it uses straight-line distance at urban speed,
// otherwise a flat 20 minutes.
func travelEstimate(a, b *domain.Place) int {
	if a.Location == nil || b.Location == nil {
		return 20
	}
	dLat := a.Location.Lat - b.Location.Lat
	dLng := a.Location.Lng - b.Location.Lng
	km := math.Sqrt(dLat*dLat+dLng*dLng) * 111.0
	minutes := int(math.Ceil(km / 25.0 * 60.0)) // ~25 km/h through a city
	if minutes < 5 {
		minutes = 5
	}
	if minutes > 90 {
		minutes = 90
	}
	return minutes
}

// alignToOpening pushes the start forward to the place's opening time
// when it would otherwise arrive before doors open.
func alignToOpening(start int, hours *domain.Hours) int {
	if hours == nil || hours.Open == "" {
		return start
	}
	open, err := parseClock(hours.Open)
	if err != nil {
		return start
	}
	if start < open {
		return open
	}
	return start
}

func dayTheme(acts []domain.ScheduledActivity) string {
	counts := map[string]int{}
	for _, a := range acts {
		for _, t := range a.Place.Tags {
			counts[t]++
		}
	}
	best, bestN := "", 0
	for t, n := range counts {
		if n > bestN {
			best, bestN = t, n
		}
	}
	switch best {
	case "":
		return "Exploring"
	case "food":
		return "Food and flavors"
	case "culture", "history":
		return "Culture and history"
	case "nature", "outdoors":
		return "Out in nature"
	case "nightlife":
		return "Evening out"
	case "shopping":
		return "Shopping day"
	default:
		return "Exploring " + best
	}
}

func mustClock(s string) int {
	m, err := parseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}

// parseClock converts "15:04" into minutes from midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
