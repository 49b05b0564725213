package domain

import (
	"fmt"
	"time"
)

// DefaultMaxGap is the largest unexplained idle window tolerated between
// two consecutive activities in a day.
const DefaultMaxGap = 4 * time.Hour

// ValidateItinerary checks the structural invariants of an itinerary:
// day numbers unique, 1-indexed and strictly increasing; activities within
// a day ordered by start time; no unexplained gap larger than maxGap
// between the end of one activity and the start of the next. A zero
// maxGap falls back to DefaultMaxGap.
func ValidateItinerary(days []ItineraryDay, maxGap time.Duration) error {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}

	prevDay := 0
	for i, d := range days {
		if i == 0 && d.Day != 1 {
			return fmt.Errorf("%w: day numbers must start at 1, got %d", ErrValidation, d.Day)
		}
		if d.Day <= prevDay {
			return fmt.Errorf("%w: day numbers must be 1-indexed and strictly increasing, got %d after %d", ErrValidation, d.Day, prevDay)
		}
		prevDay = d.Day

		var prevEnd time.Duration = -1
		for i, a := range d.Activities {
			start, err := parseClock(a.Start)
			if err != nil {
				return fmt.Errorf("%w: day %d activity %d: %v", ErrValidation, d.Day, i+1, err)
			}
			if prevEnd >= 0 {
				if start < prevEnd {
					return fmt.Errorf("%w: day %d activities overlap at %s", ErrValidation, d.Day, a.Start)
				}
				gap := start - prevEnd - time.Duration(a.TravelMinutes)*time.Minute
				if gap > maxGap {
					return fmt.Errorf("%w: day %d has a %s gap before %s", ErrValidation, d.Day, gap, a.Place.Name)
				}
			}
			end := start + time.Duration(a.DurationMinutes)*time.Minute
			if a.End != "" {
				if e, err := parseClock(a.End); err == nil {
					end = e
				}
			}
			prevEnd = end
		}
	}
	return nil
}

// parseClock converts "15:04" into a duration from midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("bad time %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
