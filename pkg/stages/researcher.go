package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/ports"
)

// Researcher collects hotels, restaurants and attractions for the chosen
// destination through a PlaceFinder. Finding nothing for every category
// is a legitimate outcome: it is acknowledged honestly and still counts
// as finished research.
type Researcher struct {
	finder ports.PlaceFinder
}

// NewResearcher creates the researcher stage backed by the given finder.
func NewResearcher(finder ports.PlaceFinder) *Researcher {
	return &Researcher{finder: finder}
}

func (r *Researcher) Name() string { return "researcher" }

func (r *Researcher) Run(ctx context.Context, state *domain.TripState, message string) (*ports.StageResult, error) {
	dest := state.Preferences.Destination

	hotels, err := r.finder.Find(ctx, dest, domain.PlaceHotel)
	if err != nil {
		return nil, err
	}
	restaurants, err := r.finder.Find(ctx, dest, domain.PlaceRestaurant)
	if err != nil {
		return nil, err
	}
	attractions, err := r.finder.Find(ctx, dest, domain.PlaceAttraction)
	if err != nil {
		return nil, err
	}

	patch := &ports.StatePatch{
		Hotels:      hotels,
		Restaurants: restaurants,
		Attractions: attractions,
	}

	if len(hotels) == 0 && len(restaurants) == 0 && len(attractions) == 0 {
		patch.NoResults = true
		return &ports.StageResult{
			Text: fmt.Sprintf(
				"I couldn't find any places for %s right now. You could try a nearby city, or I can keep your preferences and retry later.",
				dest),
			Patch: patch,
		}, nil
	}

	var parts []string
	if n := len(hotels); n > 0 {
		parts = append(parts, fmt.Sprintf("%d hotels", n))
	}
	if n := len(restaurants); n > 0 {
		parts = append(parts, fmt.Sprintf("%d restaurants", n))
	}
	if n := len(attractions); n > 0 {
		parts = append(parts, fmt.Sprintf("%d attractions", n))
	}

	return &ports.StageResult{
		Text: fmt.Sprintf("I found %s for your trip to %s. Now let me pick the ones that fit you best.",
			strings.Join(parts, ", "), dest),
		Patch: patch,
	}, nil
}
