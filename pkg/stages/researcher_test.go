package stages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/ports"
)

type finderFunc func(ctx context.Context, destination string, kind domain.PlaceKind) ([]domain.Place, error)

func (f finderFunc) Find(ctx context.Context, destination string, kind domain.PlaceKind) ([]domain.Place, error) {
	return f(ctx, destination, kind)
}

func TestResearcherCollectsAllKinds(t *testing.T) {
	state := domain.NewTripState()
	state.Preferences.Destination = "Tokyo, Japan"

	res, err := NewResearcher(NewCatalog()).Run(context.Background(), state, "")
	require.NoError(t, err)

	require.NotNil(t, res.Patch)
	assert.NotEmpty(t, res.Patch.Hotels)
	assert.NotEmpty(t, res.Patch.Restaurants)
	assert.NotEmpty(t, res.Patch.Attractions)
	assert.False(t, res.Patch.NoResults)
	assert.Contains(t, res.Text, "Tokyo")
}

func TestResearcherNoResultsIsHonest(t *testing.T) {
	state := domain.NewTripState()
	state.Preferences.Destination = "Ulaanbaatar, Mongolia"

	res, err := NewResearcher(NewCatalog()).Run(context.Background(), state, "")
	require.NoError(t, err)

	require.NotNil(t, res.Patch)
	assert.True(t, res.Patch.NoResults)
	assert.Contains(t, res.Text, "couldn't find")
	assert.False(t, res.Empty())
}

func TestResearcherPropagatesFinderError(t *testing.T) {
	boom := errors.New("search backend down")
	var finder ports.PlaceFinder = finderFunc(func(context.Context, string, domain.PlaceKind) ([]domain.Place, error) {
		return nil, boom
	})

	state := domain.NewTripState()
	state.Preferences.Destination = "Tokyo, Japan"

	_, err := NewResearcher(finder).Run(context.Background(), state, "")
	assert.ErrorIs(t, err, boom)
}

func TestCatalogMatchesCityToken(t *testing.T) {
	c := NewCatalog()

	hotels, err := c.Find(context.Background(), "Tokyo, Japan", domain.PlaceHotel)
	require.NoError(t, err)
	assert.NotEmpty(t, hotels)

	hotels, err = c.Find(context.Background(), "tokyo", domain.PlaceHotel)
	require.NoError(t, err)
	assert.NotEmpty(t, hotels)

	none, err := c.Find(context.Background(), "Atlantis", domain.PlaceHotel)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCatalogHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCatalog().Find(ctx, "Tokyo, Japan", domain.PlaceHotel)
	assert.ErrorIs(t, err, context.Canceled)
}
