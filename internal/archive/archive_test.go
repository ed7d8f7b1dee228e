package archive

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
)

func testSet(generatedAt time.Time) *domain.GriddedForecastSet {
	initTime := time.Date(2024, 5, 20, 21, 0, 0, 0, time.UTC)
	return &domain.GriddedForecastSet{
		InitTimes:          []time.Time{initTime},
		MinLeadTimeSeconds: 0,
		MaxLeadTimeSeconds: 3600,
		GridXCoords:        []float64{0, 1000, 2000},
		GridYCoords:        []float64{0, 1000},
		Grids: []*domain.ForecastGrid{
			{
				InitTime: initTime,
				Probabilities: domain.Matrix{
					{0.5, math.NaN(), 0.9},
					{math.NaN(), 0.25, math.NaN()},
				},
			},
		},
		Projection: projection.Params{
			Family:            projection.LambertConformal,
			StandardParallels: [2]float64{25, 25},
			CentralLongitude:  265,
		},
		GeneratedAt: generatedAt,
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	set := testSet(time.Date(2024, 5, 20, 21, 5, 0, 0, time.UTC))
	runID, err := store.SaveRun(ctx, set)
	require.NoError(t, err)
	assert.Positive(t, runID)

	got, err := store.LoadRun(ctx, runID)
	require.NoError(t, err)

	assert.Equal(t, set.GridXCoords, got.GridXCoords)
	assert.Equal(t, set.Projection, got.Projection)
	require.Len(t, got.Grids, 1)

	grid := got.Grids[0].Probabilities
	assert.Equal(t, 0.9, grid[0][2])
	assert.True(t, math.IsNaN(grid[1][0]), "NaN cells survive archiving")
}

func TestLoadRun_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.LoadRun(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := testSet(time.Date(2024, 5, 20, 21, 5, 0, 0, time.UTC))
	newer := testSet(time.Date(2024, 5, 20, 22, 5, 0, 0, time.UTC))

	olderID, err := store.SaveRun(ctx, older)
	require.NoError(t, err)
	newerID, err := store.SaveRun(ctx, newer)
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, newerID, runs[0].ID, "newest first")
	assert.Equal(t, olderID, runs[1].ID)
	assert.Equal(t, 1, runs[0].InitTimes)
	assert.Equal(t, 2, runs[0].GridRows)
	assert.Equal(t, 3, runs[0].GridColumns)
	assert.Equal(t, newer.GeneratedAt.UTC(), runs[0].GeneratedAt.UTC())
}

func TestSummarize(t *testing.T) {
	covered, maxProb := summarize(domain.Matrix{
		{math.NaN(), 0.3},
		{0.7, math.NaN()},
	})
	assert.Equal(t, 2, covered)
	assert.Equal(t, 0.7, maxProb)

	covered, maxProb = summarize(domain.Matrix{{math.NaN()}})
	assert.Equal(t, 0, covered)
	assert.Equal(t, 0.0, maxProb)
}
