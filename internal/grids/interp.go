package grids

import (
	"fmt"

	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
)

// InterpToLatLngGrid resamples a planar probability matrix onto a geographic
// grid by nearest-neighbour lookup: each lat/long grid point is projected
// into the planar system and takes the value of the closest planar grid
// point. Query points beyond the planar grid clamp to the nearest edge, so
// the geographic field extends to its own rounded-outward extent.
func InterpToLatLngGrid(
	probabilities domain.Matrix, xs, ys []float64,
	proj *projection.Projection, latSpacing, lngSpacing float64,
) (latlng domain.Matrix, lats, lngs []float64, err error) {
	lats, lngs, err = EnclosingLatLngGrid(xs, ys, proj, latSpacing, lngSpacing)
	if err != nil {
		return nil, nil, nil, err
	}

	latlng = make(domain.Matrix, len(lats))
	for i, lat := range lats {
		row := make([]float64, len(lngs))
		for j, lng := range lngs {
			x, y, err := proj.ToXY(lat, lng, 0, 0)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("project lat/long grid point (%g, %g): %w", lat, lng, err)
			}
			row[j] = probabilities[nearestIndex(ys, y)][nearestIndex(xs, x)]
		}
		latlng[i] = row
	}
	return latlng, lats, lngs, nil
}

// nearestIndex returns the index of the sorted coordinate closest to value,
// clamped to [0, len(sorted)-1].
func nearestIndex(sorted []float64, value float64) int {
	i := firstIndexGeq(sorted, value)
	if i == 0 {
		return 0
	}
	if i == len(sorted) {
		return len(sorted) - 1
	}
	if value-sorted[i-1] <= sorted[i]-value {
		return i - 1
	}
	return i
}
