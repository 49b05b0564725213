package stages

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/ports"
)

// ActivityFilter scores researched attractions and restaurants against
// the user's interests and budget and keeps the best matches for the
// schedule builder.
type ActivityFilter struct {
	// Keep controls how many activities survive filtering. Zero means
	// the default of 12, enough for a packed 2-day trip.
	Keep int
}

// NewActivityFilter creates the filtering stage with default settings.
func NewActivityFilter() *ActivityFilter { return &ActivityFilter{} }

func (f *ActivityFilter) Name() string { return "activity_filter" }

func (f *ActivityFilter) Run(ctx context.Context, state *domain.TripState, message string) (*ports.StageResult, error) {
	keep := f.Keep
	if keep <= 0 {
		keep = 12
	}

	candidates := make([]domain.Place, 0, len(state.Attractions)+len(state.Restaurants))
	candidates = append(candidates, state.Attractions...)
	candidates = append(candidates, state.Restaurants...)

	prefs := state.Preferences
	scored := make([]domain.Place, 0, len(candidates))
	for _, p := range candidates {
		p.MatchScore = scorePlace(p, prefs)
		scored = append(scored, p)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].MatchScore > scored[j].MatchScore
	})
	if len(scored) > keep {
		scored = scored[:keep]
	}

	if len(scored) == 0 {
		return &ports.StageResult{
			Text:  "None of the places I found seem to match what you're after. Want me to widen the search?",
			Patch: &ports.StatePatch{RecommendedActivities: []domain.Place{}},
		}, nil
	}

	top := scored[0].Name
	return &ports.StageResult{
		Text: fmt.Sprintf("I picked %d activities that match your interests, starting with %s. Building your day-by-day plan now.",
			len(scored), top),
		Patch: &ports.StatePatch{RecommendedActivities: scored},
	}, nil
}

// scorePlace rates a place 0-100 against the preferences. Interest tag
// overlap dominates, rating and price fit refine.
func scorePlace(p domain.Place, prefs domain.Preferences) int {
	score := 50

	for _, interest := range prefs.Interests {
		for _, tag := range p.Tags {
			if strings.EqualFold(tag, interest) {
				score += 15
			}
		}
	}

	if p.Rating >= 4.5 {
		score += 10
	} else if p.Rating >= 4.0 {
		score += 5
	}

	if prefs.Budget != nil && p.PriceLevel != "" {
		if priceFitsBudget(p.PriceLevel, prefs.Budget.Level) {
			score += 10
		} else {
			score -= 15
		}
	}

	for _, avoid := range prefs.Avoids {
		for _, tag := range p.Tags {
			if strings.EqualFold(tag, avoid) {
				score -= 40
			}
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func priceFitsBudget(priceLevel string, level domain.BudgetLevel) bool {
	switch level {
	case domain.BudgetLow:
		return priceLevel == "$"
	case domain.BudgetMid:
		return priceLevel == "$" || priceLevel == "$$"
	case domain.BudgetHigh:
		return true
	}
	return true
}
