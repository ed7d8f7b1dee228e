// Package grids builds the evenly spaced coordinate grids that forecast
// probabilities live on, rasterizes polygons onto them, and interpolates
// between planar and geographic grids.
//
// A grid is represented as two ascending coordinate vectors: xs (one per
// column) and ys (one per row, row 0 at the smallest y). Probability
// matrices are indexed [row][column] to match.
package grids

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
	"github.com/paulmach/orb"
)

// XYGridPoints returns the coordinate vectors of a planar grid anchored at
// (xMin, yMin) with the given spacing and dimensions.
func XYGridPoints(xMin, yMin, xSpacing, ySpacing float64, numRows, numCols int) (xs, ys []float64) {
	xs = make([]float64, numCols)
	for j := range xs {
		xs[j] = xMin + float64(j)*xSpacing
	}
	ys = make([]float64, numRows)
	for i := range ys {
		ys[i] = yMin + float64(i)*ySpacing
	}
	return xs, ys
}

// LatLngGridPoints returns the coordinate vectors of a geographic grid
// anchored at (minLat, minLng).
func LatLngGridPoints(minLat, minLng, latSpacing, lngSpacing float64, numRows, numCols int) (lats, lngs []float64) {
	lats = make([]float64, numRows)
	for i := range lats {
		lats[i] = minLat + float64(i)*latSpacing
	}
	lngs = make([]float64, numCols)
	for j := range lngs {
		lngs[j] = minLng + float64(j)*lngSpacing
	}
	return lats, lngs
}

// EnclosingXYGrid builds a planar grid that strictly encloses bound plus a
// kinematic margin on all sides. The margin accommodates the maximum
// expected storm displacement over the run's lead-time window. Edges are
// rounded outward to whole multiples of the spacing so grids from different
// runs over the same region stay aligned.
func EnclosingXYGrid(bound orb.Bound, xSpacing, ySpacing, margin float64) (xs, ys []float64) {
	xMin := floorToNearest(bound.Min[0]-margin, xSpacing)
	xMax := ceilingToNearest(bound.Max[0]+margin, xSpacing)
	yMin := floorToNearest(bound.Min[1]-margin, ySpacing)
	yMax := ceilingToNearest(bound.Max[1]+margin, ySpacing)

	numCols := 1 + int(math.Round((xMax-xMin)/xSpacing))
	numRows := 1 + int(math.Round((yMax-yMin)/ySpacing))

	return XYGridPoints(xMin, yMin, xSpacing, ySpacing, numRows, numCols)
}

// EnclosingLatLngGrid builds a geographic grid that encloses the planar
// grid, by projecting the planar grid's corners back to lat/long and
// rounding the resulting extent outward to whole multiples of the spacing.
func EnclosingLatLngGrid(xs, ys []float64, proj *projection.Projection, latSpacing, lngSpacing float64) (lats, lngs []float64, err error) {
	if len(xs) == 0 || len(ys) == 0 {
		return nil, nil, fmt.Errorf("empty planar grid")
	}

	cornerXs := []float64{xs[0], xs[len(xs)-1], xs[0], xs[len(xs)-1]}
	cornerYs := []float64{ys[0], ys[0], ys[len(ys)-1], ys[len(ys)-1]}

	cornerLats, cornerLngs, err := proj.XYsToLatLon(cornerXs, cornerYs, 0, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("project grid corners: %w", err)
	}

	minLat := floorToNearest(minOf(cornerLats), latSpacing)
	maxLat := ceilingToNearest(maxOf(cornerLats), latSpacing)
	minLng := floorToNearest(minOf(cornerLngs), lngSpacing)
	maxLng := ceilingToNearest(maxOf(cornerLngs), lngSpacing)

	numRows := 1 + int(math.Round((maxLat-minLat)/latSpacing))
	numCols := 1 + int(math.Round((maxLng-minLng)/lngSpacing))

	lats, lngs = LatLngGridPoints(minLat, minLng, latSpacing, lngSpacing, numRows, numCols)
	return lats, lngs, nil
}

func floorToNearest(value, base float64) float64 {
	return base * math.Floor(value/base)
}

func ceilingToNearest(value, base float64) float64 {
	return base * math.Ceil(value/base)
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
