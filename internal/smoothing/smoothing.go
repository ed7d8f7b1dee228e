// Package smoothing applies distance-weighted spatial filters to forecast
// grids.
//
// Both filters are NaN-aware: cells holding NaN contribute nothing to their
// neighbours and remain NaN after filtering, so the "no forecast" region of
// a grid never bleeds into, or gets filled from, the forecast region.
package smoothing

import (
	"math"

	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
)

// ApplyGaussian smooths a grid with weights exp(-(d / eFolding)^2), where d
// is the planar distance between cell centres. Neighbours beyond
// cutoffRadius are ignored. The input is not modified.
func ApplyGaussian(grid domain.Matrix, xSpacing, ySpacing, eFoldingRadius, cutoffRadius float64) domain.Matrix {
	weight := func(distance float64) float64 {
		ratio := distance / eFoldingRadius
		return math.Exp(-ratio * ratio)
	}
	return smooth(grid, xSpacing, ySpacing, cutoffRadius, weight)
}

// ApplyCressman smooths a grid with Cressman weights
// (R^2 - d^2) / (R^2 + d^2) for neighbour distance d within radius R. The
// input is not modified.
func ApplyCressman(grid domain.Matrix, xSpacing, ySpacing, cutoffRadius float64) domain.Matrix {
	r2 := cutoffRadius * cutoffRadius
	weight := func(distance float64) float64 {
		d2 := distance * distance
		return (r2 - d2) / (r2 + d2)
	}
	return smooth(grid, xSpacing, ySpacing, cutoffRadius, weight)
}

func smooth(grid domain.Matrix, xSpacing, ySpacing, cutoffRadius float64, weight func(distance float64) float64) domain.Matrix {
	numRows := len(grid)
	if numRows == 0 {
		return domain.Matrix{}
	}
	numCols := len(grid[0])

	// The stencil half-widths in whole cells. Everything past the cutoff
	// carries zero weight, so the window never needs to be larger.
	halfRows := int(math.Floor(cutoffRadius / ySpacing))
	halfCols := int(math.Floor(cutoffRadius / xSpacing))

	out := make(domain.Matrix, numRows)
	for r := 0; r < numRows; r++ {
		out[r] = make([]float64, numCols)
		for c := 0; c < numCols; c++ {
			if math.IsNaN(grid[r][c]) {
				out[r][c] = math.NaN()
				continue
			}
			out[r][c] = weightedMean(grid, r, c, halfRows, halfCols, xSpacing, ySpacing, cutoffRadius, weight)
		}
	}
	return out
}

func weightedMean(grid domain.Matrix, row, col, halfRows, halfCols int, xSpacing, ySpacing, cutoffRadius float64, weight func(distance float64) float64) float64 {
	numRows := len(grid)
	numCols := len(grid[0])

	var sum, totalWeight float64
	for dr := -halfRows; dr <= halfRows; dr++ {
		r := row + dr
		if r < 0 || r >= numRows {
			continue
		}
		for dc := -halfCols; dc <= halfCols; dc++ {
			c := col + dc
			if c < 0 || c >= numCols {
				continue
			}
			value := grid[r][c]
			if math.IsNaN(value) {
				continue
			}
			distance := math.Hypot(float64(dc)*xSpacing, float64(dr)*ySpacing)
			if distance > cutoffRadius {
				continue
			}
			w := weight(distance)
			sum += w * value
			totalWeight += w
		}
	}

	// The centre cell always contributes, so totalWeight is positive here.
	return sum / totalWeight
}
