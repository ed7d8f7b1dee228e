package grids

import (
	"sort"

	"github.com/couchcryptid/storm-forecast-grids/internal/geometry"
	"github.com/paulmach/orb"
)

// FindGridPointsInPolygon returns the row/column indices of every grid point
// inside or on the polygon, as parallel slices. The candidate window is cut
// down to the polygon's bounding box by binary search, so cost scales with
// the box area rather than the full grid size.
//
// Empty results are a normal outcome: a buffer lying entirely off the grid
// covers nothing and contributes nothing.
//
// xs and ys must be sorted ascending. Grid points exactly on the boundary
// count as covered.
func FindGridPointsInPolygon(polygon orb.Polygon, xs, ys []float64) (rows, cols []int) {
	bound := geometry.PolygonBound(polygon)

	minCol := firstIndexGeq(xs, bound.Min[0])
	maxCol := lastIndexLeq(xs, bound.Max[0])
	minRow := firstIndexGeq(ys, bound.Min[1])
	maxRow := lastIndexLeq(ys, bound.Max[1])

	if minCol > maxCol || minRow > maxRow {
		return nil, nil
	}

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			if !geometry.PointInOrOnPolygon(polygon, xs[col], ys[row]) {
				continue
			}
			rows = append(rows, row)
			cols = append(cols, col)
		}
	}
	return rows, cols
}

// firstIndexGeq returns the index of the first element >= value, or
// len(sorted) when every element is smaller.
func firstIndexGeq(sorted []float64, value float64) int {
	return sort.SearchFloat64s(sorted, value)
}

// lastIndexLeq returns the index of the last element <= value, or -1 when
// every element is larger.
func lastIndexLeq(sorted []float64, value float64) int {
	return sort.Search(len(sorted), func(i int) bool { return sorted[i] > value }) - 1
}
