package projection_test

import (
	"math"
	"testing"

	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rapLikeLambert(t *testing.T) *projection.Projection {
	t.Helper()
	proj, err := projection.New(projection.Params{
		Family:            projection.LambertConformal,
		StandardParallels: [2]float64{25, 25},
		CentralLongitude:  265,
	})
	require.NoError(t, err)
	return proj
}

func centralUSAzimuthal(t *testing.T) *projection.Projection {
	t.Helper()
	proj, err := projection.New(projection.Params{
		Family:           projection.AzimuthalEquidistant,
		CentralLatitude:  35,
		CentralLongitude: -97,
	})
	require.NoError(t, err)
	return proj
}

func TestNew_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		params projection.Params
		want   error
	}{
		{
			"unknown family",
			projection.Params{Family: "mercator"},
			projection.ErrDegenerateProjection,
		},
		{
			"symmetric standard parallels",
			projection.Params{
				Family:            projection.LambertConformal,
				StandardParallels: [2]float64{-30, 30},
			},
			projection.ErrDegenerateProjection,
		},
		{
			"standard parallel at pole",
			projection.Params{
				Family:            projection.LambertConformal,
				StandardParallels: [2]float64{25, 90},
			},
			projection.ErrDegenerateProjection,
		},
		{
			"standard parallel beyond pole",
			projection.Params{
				Family:            projection.LambertConformal,
				StandardParallels: [2]float64{25, 91},
			},
			projection.ErrInvalidLatitude,
		},
		{
			"central latitude out of range",
			projection.Params{
				Family:          projection.AzimuthalEquidistant,
				CentralLatitude: -100,
			},
			projection.ErrInvalidLatitude,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := projection.New(tc.params)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestToXY_InvalidLatitude(t *testing.T) {
	proj := rapLikeLambert(t)
	_, _, err := proj.ToXY(90.5, -100, 0, 0)
	assert.ErrorIs(t, err, projection.ErrInvalidLatitude)
}

func TestToXY_NaNPropagates(t *testing.T) {
	proj := rapLikeLambert(t)

	x, y, err := proj.ToXY(math.NaN(), -100, 0, 0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(x))
	assert.True(t, math.IsNaN(y))

	lat, lon := proj.ToLatLon(math.NaN(), 0, 0, 0)
	assert.True(t, math.IsNaN(lat))
	assert.True(t, math.IsNaN(lon))
}

func TestRoundTrip_BothFamilies(t *testing.T) {
	projLCC := rapLikeLambert(t)
	projAEQD := centralUSAzimuthal(t)

	points := []struct{ lat, lon float64 }{
		{35, -97},
		{25, 265},
		{48.9, -122.5},
		{-33.3, 18.4},
		{60, 10},
		{89, -97},
		{-89, 20},
		{0.1, 179.9},
	}

	for _, proj := range []*projection.Projection{projLCC, projAEQD} {
		for _, pt := range points {
			x, y, err := proj.ToXY(pt.lat, pt.lon, 0, 0)
			require.NoError(t, err)
			lat, lon := proj.ToLatLon(x, y, 0, 0)

			wantLon := pt.lon
			if wantLon < 0 {
				wantLon += 360
			}
			assert.InDelta(t, pt.lat, lat, 1e-6, "lat for input (%g, %g)", pt.lat, pt.lon)
			assert.InDelta(t, wantLon, lon, 1e-6, "lon for input (%g, %g)", pt.lat, pt.lon)
		}
	}
}

func TestFalseEastingNorthing(t *testing.T) {
	proj := rapLikeLambert(t)

	x0, y0, err := proj.ToXY(40, -100, 0, 0)
	require.NoError(t, err)
	x1, y1, err := proj.ToXY(40, -100, 3000, -2000)
	require.NoError(t, err)

	assert.InDelta(t, x0+3000, x1, 1e-9)
	assert.InDelta(t, y0-2000, y1, 1e-9)

	lat, lon := proj.ToLatLon(x1, y1, 3000, -2000)
	assert.InDelta(t, 40.0, lat, 1e-6)
	assert.InDelta(t, 260.0, lon, 1e-6)
}

func TestAzimuthal_CenterMapsToOrigin(t *testing.T) {
	proj := centralUSAzimuthal(t)

	x, y, err := proj.ToXY(35, -97, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	lat, lon := proj.ToLatLon(0, 0, 0, 0)
	assert.InDelta(t, 35.0, lat, 1e-9)
	assert.InDelta(t, 263.0, lon, 1e-9)
}

func TestAzimuthal_DistanceFromCenterIsGeodesic(t *testing.T) {
	proj := centralUSAzimuthal(t)

	// One degree of latitude due north of the center: geodesic distance is
	// exactly R * 1° for the azimuthal equidistant family.
	x, y, err := proj.ToXY(36, -97, 0, 0)
	require.NoError(t, err)

	wantDist := projection.EarthRadiusMetres * math.Pi / 180
	assert.InDelta(t, wantDist, math.Hypot(x, y), 1e-3)
	assert.InDelta(t, 0, x, 1e-6)
	assert.Greater(t, y, 0.0)
}

func TestLatLonsToXY_Slices(t *testing.T) {
	proj := rapLikeLambert(t)

	lats := []float64{35, math.NaN(), 40}
	lons := []float64{-97, -97, math.NaN()}

	xs, ys, err := proj.LatLonsToXY(lats, lons, 0, 0)
	require.NoError(t, err)
	require.Len(t, xs, 3)

	assert.False(t, math.IsNaN(xs[0]))
	assert.True(t, math.IsNaN(xs[1]))
	assert.True(t, math.IsNaN(ys[2]))

	backLats, backLons, err := proj.XYsToLatLon(xs, ys, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 35.0, backLats[0], 1e-6)
	assert.InDelta(t, 263.0, backLons[0], 1e-6)
	assert.True(t, math.IsNaN(backLats[1]))
}

func TestLatLonsToXY_LengthMismatch(t *testing.T) {
	proj := rapLikeLambert(t)
	_, _, err := proj.LatLonsToXY([]float64{1, 2}, []float64{1}, 0, 0)
	assert.Error(t, err)
}
