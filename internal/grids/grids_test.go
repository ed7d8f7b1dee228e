package grids_test

import (
	"math"
	"testing"

	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
	"github.com/couchcryptid/storm-forecast-grids/internal/geometry"
	"github.com/couchcryptid/storm-forecast-grids/internal/grids"
	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXYGridPoints(t *testing.T) {
	xs, ys := grids.XYGridPoints(-2000, 1000, 1000, 500, 3, 4)

	assert.Equal(t, []float64{-2000, -1000, 0, 1000}, xs)
	assert.Equal(t, []float64{1000, 1500, 2000}, ys)
}

func TestEnclosingXYGrid(t *testing.T) {
	bound := orb.Bound{
		Min: orb.Point{-1500, 250},
		Max: orb.Point{2300, 1800},
	}

	xs, ys := grids.EnclosingXYGrid(bound, 1000, 1000, 500)

	// Extent plus margin is [-2000, 2800] x [-250, 2300]; rounded outward to
	// whole kilometres: [-2000, 3000] x [-1000, 3000].
	assert.Equal(t, -2000.0, xs[0])
	assert.Equal(t, 3000.0, xs[len(xs)-1])
	assert.Equal(t, -1000.0, ys[0])
	assert.Equal(t, 3000.0, ys[len(ys)-1])

	// Strictly encloses bound + margin on all sides.
	assert.LessOrEqual(t, xs[0], bound.Min[0]-500)
	assert.GreaterOrEqual(t, xs[len(xs)-1], bound.Max[0]+500)
	assert.LessOrEqual(t, ys[0], bound.Min[1]-500)
	assert.GreaterOrEqual(t, ys[len(ys)-1], bound.Max[1]+500)

	// Even spacing throughout.
	for j := 1; j < len(xs); j++ {
		assert.InDelta(t, 1000.0, xs[j]-xs[j-1], 1e-9)
	}
}

func TestFindGridPointsInPolygon_UnitSquare(t *testing.T) {
	poly, err := geometry.PolygonFromVertices(
		[]float64{0, 1, 1, 0},
		[]float64{0, 0, 1, 1},
	)
	require.NoError(t, err)

	xs := []float64{0, 0.5, 1, 2}
	ys := []float64{0, 0.5, 1, 2}

	rows, cols := grids.FindGridPointsInPolygon(poly, xs, ys)

	type cell struct{ row, col int }
	covered := make(map[cell]bool)
	for i := range rows {
		covered[cell{rows[i], cols[i]}] = true
	}

	// (0,0), (0.5,0.5) and (1,1) are in or on the square; (2,2) is not.
	assert.True(t, covered[cell{0, 0}])
	assert.True(t, covered[cell{1, 1}])
	assert.True(t, covered[cell{2, 2}])
	assert.False(t, covered[cell{3, 3}])
}

func TestFindGridPointsInPolygon_OffGrid(t *testing.T) {
	poly, err := geometry.PolygonFromVertices(
		[]float64{100, 101, 101, 100},
		[]float64{100, 100, 101, 101},
	)
	require.NoError(t, err)

	rows, cols := grids.FindGridPointsInPolygon(poly, []float64{0, 1, 2}, []float64{0, 1, 2})

	assert.Empty(t, rows)
	assert.Empty(t, cols)
}

func TestFindGridPointsInPolygon_BoundingBoxRestriction(t *testing.T) {
	// A polygon covering one cell of a large grid must return exactly that
	// cell, proving the search window is the bounding box and the boundary
	// is inclusive.
	poly, err := geometry.PolygonFromVertices(
		[]float64{4000, 6000, 6000, 4000},
		[]float64{4000, 4000, 6000, 6000},
	)
	require.NoError(t, err)

	xs := make([]float64, 101)
	ys := make([]float64, 101)
	for i := range xs {
		xs[i] = float64(i) * 1000
		ys[i] = float64(i) * 1000
	}

	rows, cols := grids.FindGridPointsInPolygon(poly, xs, ys)

	require.Len(t, rows, 9) // 3x3 block of grid points from 4000 to 6000
	for i := range rows {
		assert.GreaterOrEqual(t, rows[i], 4)
		assert.LessOrEqual(t, rows[i], 6)
		assert.GreaterOrEqual(t, cols[i], 4)
		assert.LessOrEqual(t, cols[i], 6)
	}
}

func TestEnclosingLatLngGrid(t *testing.T) {
	proj, err := projection.New(projection.Params{
		Family:           projection.AzimuthalEquidistant,
		CentralLatitude:  35,
		CentralLongitude: -97,
	})
	require.NoError(t, err)

	xs, ys := grids.XYGridPoints(-50000, -50000, 1000, 1000, 101, 101)

	lats, lngs, err := grids.EnclosingLatLngGrid(xs, ys, proj, 0.01, 0.01)
	require.NoError(t, err)

	// The geographic grid has to reach past the projected corners.
	assert.Less(t, lats[0], 34.6)
	assert.Greater(t, lats[len(lats)-1], 35.4)
	assert.Less(t, lngs[0], 262.5)
	assert.Greater(t, lngs[len(lngs)-1], 263.5)

	// Edges land on whole multiples of the spacing.
	assert.InDelta(t, math.Round(lats[0]*100), lats[0]*100, 1e-6)
	assert.InDelta(t, math.Round(lngs[0]*100), lngs[0]*100, 1e-6)
}

func TestInterpToLatLngGrid_ConstantField(t *testing.T) {
	proj, err := projection.New(projection.Params{
		Family:           projection.AzimuthalEquidistant,
		CentralLatitude:  35,
		CentralLongitude: -97,
	})
	require.NoError(t, err)

	xs, ys := grids.XYGridPoints(-10000, -10000, 1000, 1000, 21, 21)

	probs := make(domain.Matrix, len(ys))
	for i := range probs {
		probs[i] = make([]float64, len(xs))
		for j := range probs[i] {
			probs[i][j] = 0.7
		}
	}

	latlng, lats, lngs, err := grids.InterpToLatLngGrid(probs, xs, ys, proj, 0.01, 0.01)
	require.NoError(t, err)
	require.Len(t, latlng, len(lats))
	require.NotEmpty(t, lngs)

	// Nearest-neighbour resampling of a constant field is constant,
	// including clamped points beyond the planar grid edge.
	for i := range latlng {
		for j := range latlng[i] {
			assert.Equal(t, 0.7, latlng[i][j])
		}
	}
}
