package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamkit/roamkit/pkg/domain"
)

func TestActivityFilterRanksByInterestOverlap(t *testing.T) {
	state := domain.NewTripState()
	state.Preferences.Interests = []string{"history"}
	state.Attractions = []domain.Place{
		{ID: "plain", Name: "Plain Spot", Kind: domain.PlaceAttraction, Rating: 4.0},
		{ID: "match", Name: "Old Fort", Kind: domain.PlaceAttraction, Rating: 4.0, Tags: []string{"history"}},
	}

	res, err := NewActivityFilter().Run(context.Background(), state, "")
	require.NoError(t, err)

	got := res.Patch.RecommendedActivities
	require.Len(t, got, 2)
	assert.Equal(t, "match", got[0].ID)
	assert.Greater(t, got[0].MatchScore, got[1].MatchScore)
}

func TestActivityFilterPenalizesBudgetMismatch(t *testing.T) {
	state := domain.NewTripState()
	state.Preferences.Budget = &domain.Budget{Level: domain.BudgetLow}
	state.Attractions = []domain.Place{
		{ID: "pricey", Name: "Fancy Tour", Kind: domain.PlaceAttraction, PriceLevel: "$$$"},
		{ID: "cheap", Name: "Free Walk", Kind: domain.PlaceAttraction, PriceLevel: "$"},
	}

	res, err := NewActivityFilter().Run(context.Background(), state, "")
	require.NoError(t, err)

	got := res.Patch.RecommendedActivities
	require.Len(t, got, 2)
	assert.Equal(t, "cheap", got[0].ID)
}

func TestActivityFilterDropsAvoided(t *testing.T) {
	state := domain.NewTripState()
	state.Preferences.Avoids = []string{"nightlife"}
	state.Attractions = []domain.Place{
		{ID: "club", Name: "Night Club", Kind: domain.PlaceAttraction, Tags: []string{"nightlife"}},
		{ID: "park", Name: "City Park", Kind: domain.PlaceAttraction, Tags: []string{"nature"}},
	}

	res, err := NewActivityFilter().Run(context.Background(), state, "")
	require.NoError(t, err)

	got := res.Patch.RecommendedActivities
	assert.Equal(t, "park", got[0].ID)
	assert.Less(t, got[1].MatchScore, got[0].MatchScore)
}

func TestActivityFilterCapsKeep(t *testing.T) {
	state := domain.NewTripState()
	state.Attractions = somePlaces(20)

	res, err := (&ActivityFilter{Keep: 5}).Run(context.Background(), state, "")
	require.NoError(t, err)
	assert.Len(t, res.Patch.RecommendedActivities, 5)
}

func TestActivityFilterEmptyCandidates(t *testing.T) {
	res, err := NewActivityFilter().Run(context.Background(), domain.NewTripState(), "")
	require.NoError(t, err)

	assert.Empty(t, res.Patch.RecommendedActivities)
	assert.NotEmpty(t, res.Text)
	assert.False(t, res.Empty())
}

func TestDefaultRegistryCoversAllPhases(t *testing.T) {
	reg := Default(NewCatalog())
	for _, phase := range []domain.Phase{
		domain.PhaseClarifying, domain.PhaseResearching, domain.PhaseFiltering,
		domain.PhaseBuilding, domain.PhaseComplete, domain.PhaseRefining,
	} {
		s, ok := reg.For(phase)
		require.True(t, ok, "phase %s has no stage", phase)
		assert.NotEmpty(t, s.Name())
	}
}
