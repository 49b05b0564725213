package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamkit/roamkit/pkg/domain"
)

func refinerState() *domain.TripState {
	state := domain.NewTripState()
	state.Phase = domain.PhaseComplete
	state.Preferences.Destination = "Tokyo, Japan"
	state.RecommendedActivities = []domain.Place{
		{ID: "a1", Name: "Senso-ji Temple", Kind: domain.PlaceAttraction},
		{ID: "a2", Name: "Tokyo Skytree", Kind: domain.PlaceAttraction},
		{ID: "spare", Name: "Meiji Shrine", Kind: domain.PlaceAttraction},
	}
	state.Itinerary = []domain.ItineraryDay{{
		Day: 1,
		Activities: []domain.ScheduledActivity{
			{Start: "09:00", End: "11:00", DurationMinutes: 120, Place: state.RecommendedActivities[0]},
			{Start: "11:30", End: "13:30", DurationMinutes: 120, Place: state.RecommendedActivities[1]},
		},
	}}
	return state
}

func TestRefinerRemovesNamedStop(t *testing.T) {
	state := refinerState()

	res, err := NewRefiner().Run(context.Background(), state, "please remove Tokyo Skytree")
	require.NoError(t, err)

	require.NotNil(t, res.Patch)
	require.Len(t, res.Patch.Itinerary[0].Activities, 1)
	assert.Equal(t, "Senso-ji Temple", res.Patch.Itinerary[0].Activities[0].Place.Name)

	// Committed state untouched until the orchestrator applies the patch.
	assert.Len(t, state.Itinerary[0].Activities, 2)
}

func TestRefinerSwapsForUnscheduledAlternative(t *testing.T) {
	state := refinerState()

	res, err := NewRefiner().Run(context.Background(), state, "swap Tokyo Skytree for something else")
	require.NoError(t, err)

	require.NotNil(t, res.Patch)
	assert.Equal(t, "Meiji Shrine", res.Patch.Itinerary[0].Activities[1].Place.Name)
	assert.Contains(t, res.Text, "Meiji Shrine")
}

func TestRefinerSwapWithoutAlternative(t *testing.T) {
	state := refinerState()
	state.RecommendedActivities = state.RecommendedActivities[:2] // no spare

	res, err := NewRefiner().Run(context.Background(), state, "replace Tokyo Skytree please")
	require.NoError(t, err)

	assert.Nil(t, res.Patch)
	assert.NotEmpty(t, res.Text)
}

func TestRefinerReschedulesToEvening(t *testing.T) {
	state := refinerState()

	res, err := NewRefiner().Run(context.Background(), state, "move Tokyo Skytree to the evening")
	require.NoError(t, err)

	require.NotNil(t, res.Patch)
	act := res.Patch.Itinerary[0].Activities[1]
	assert.Equal(t, "18:00", act.Start)
	assert.Equal(t, "20:00", act.End)
}

func TestRefinerUnknownStopAsksBack(t *testing.T) {
	state := refinerState()

	res, err := NewRefiner().Run(context.Background(), state, "remove the aquarium")
	require.NoError(t, err)

	assert.Nil(t, res.Patch)
	assert.Contains(t, res.Text, "Which stop")
}

func TestRefinerVagueRequestAsksBack(t *testing.T) {
	state := refinerState()

	res, err := NewRefiner().Run(context.Background(), state, "make it better somehow")
	require.NoError(t, err)

	assert.Nil(t, res.Patch)
	assert.Empty(t, res.UI)
	assert.NotEmpty(t, res.Text)
}
