package stages

import (
	"context"
	"fmt"

	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/ports"
)

// Clarifier gathers the requirements that unlock research: destination,
// dates, budget and companions. Destination can never be assumed; dates
// and budget fall back to smart defaults (3-day trip, mid-range) only
// when the user asks us to decide, tagged low-confidence.
type Clarifier struct{}

// NewClarifier creates the clarifier stage.
func NewClarifier() *Clarifier { return &Clarifier{} }

func (c *Clarifier) Name() string { return "clarifier" }

// Run merges entities extracted from the message into the preferences
// and asks the highest-priority missing question, attaching the
// matching UI directive.
func (c *Clarifier) Run(ctx context.Context, state *domain.TripState, message string) (*ports.StageResult, error) {
	found := extractEntities(message)
	prefs := state.Preferences.Clone()
	if prefs.ExtractedWith == nil {
		prefs.ExtractedWith = make(map[string]domain.Confidence)
	}

	var warnings []string

	if found.destination != "" {
		prefs.Destination = found.destination
		prefs.ExtractedWith["destination"] = found.destConf
	}
	if found.dates != nil {
		prefs.Dates = found.dates
		prefs.ExtractedWith["dates"] = found.datesConf
	}
	if found.budget != nil {
		prefs.Budget = found.budget
		prefs.ExtractedWith["budget"] = found.budgetConf
	}
	if found.companions != "" {
		prefs.Companions = found.companions
		prefs.ExtractedWith["companions"] = domain.ConfidenceHigh
	}
	if found.pace != "" {
		prefs.Pace = found.pace
	}
	if found.hotelStyle != "" {
		prefs.HotelStyle = found.hotelStyle
	}
	prefs.Interests = mergeInterests(prefs.Interests, found.interests)

	// Smart defaults only on explicit consent, never for the destination.
	if found.acceptAll && prefs.Destination != "" {
		if prefs.Dates == nil {
			prefs.Dates = &domain.DateRange{DurationDays: 3}
			prefs.ExtractedWith["dates"] = domain.ConfidenceLow
			warnings = append(warnings, "Assumed a 3-day trip; adjust the dates if that's off.")
		}
		if prefs.Budget == nil {
			prefs.Budget = &domain.Budget{Level: domain.BudgetMid}
			prefs.ExtractedWith["budget"] = domain.ConfidenceLow
			warnings = append(warnings, "Assumed a mid-range budget; adjust it if that's off.")
		}
		if prefs.Companions == "" {
			prefs.Companions = domain.CompanionSolo
			prefs.ExtractedWith["companions"] = domain.ConfidenceLow
		}
	}

	result := &ports.StageResult{
		Patch: &ports.StatePatch{Preferences: &prefs, Warnings: warnings},
	}

	question, ui := nextQuestion(prefs)
	if question == "" {
		result.Text = fmt.Sprintf(
			"Great, I have everything I need for your trip to %s. Let me start putting things together!",
			prefs.Destination)
		return result, nil
	}

	result.Text = question
	result.UI = []domain.UIDirective{ui}
	return result, nil
}

// nextQuestion returns the highest-priority missing requirement as a
// question plus the UI directive that collects it. An empty question
// means the requirement set is complete.
func nextQuestion(p domain.Preferences) (string, domain.UIDirective) {
	switch {
	case p.Destination == "":
		return "Where would you like to go?", domain.UIDirective{
			Type:     "text_input",
			Props:    map[string]any{"placeholder": "e.g. Tokyo, Paris, Goa"},
			Required: true,
		}
	case p.Dates == nil:
		return fmt.Sprintf("Nice, %s it is! When are you planning to travel?", p.Destination), domain.UIDirective{
			Type:     domain.UIDateRangePicker,
			Props:    map[string]any{"default_duration": 3, "show_presets": true},
			Required: true,
		}
	case p.Budget == nil:
		return "What's your budget for this trip?", domain.UIDirective{
			Type:     domain.UIBudgetSlider,
			Props:    map[string]any{"min": 500, "max": 20000, "step": 250, "currency": "USD"},
			Required: true,
		}
	case p.Companions == "":
		return "Who's coming along?", domain.UIDirective{
			Type:     domain.UICompanionSelector,
			Props:    map[string]any{},
			Required: true,
		}
	}
	return "", domain.UIDirective{}
}

func mergeInterests(existing, found []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, i := range existing {
		seen[i] = true
	}
	for _, i := range found {
		if !seen[i] {
			out = append(out, i)
			seen[i] = true
		}
	}
	return out
}
