// Package geometry provides the planar polygon primitives used by the
// gridded-forecast engine: construction from vertex arrays, boundary-inclusive
// point-in-polygon tests, bounding boxes, and areas.
//
// All functions are pure and unit-agnostic: a polygon built from metre
// coordinates yields areas in square metres, one built from degrees yields
// areas in square degrees.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrInvalidGeometry indicates a polygon that cannot be constructed: fewer
// than three distinct vertices, mismatched coordinate arrays, or a
// self-intersecting exterior ring.
var ErrInvalidGeometry = errors.New("invalid geometry")

// PolygonFromVertices builds a polygon from parallel exterior coordinate
// arrays. The ring is closed automatically; callers may pass either an open
// or an explicitly closed vertex list.
func PolygonFromVertices(xs, ys []float64) (orb.Polygon, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d x-coordinates vs %d y-coordinates", ErrInvalidGeometry, len(xs), len(ys))
	}

	ring := make(orb.Ring, 0, len(xs)+1)
	for i := range xs {
		ring = append(ring, orb.Point{xs[i], ys[i]})
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}

	if n := countDistinctVertices(ring); n < 3 {
		return nil, fmt.Errorf("%w: polygon has %d distinct vertices, need at least 3", ErrInvalidGeometry, n)
	}
	if selfIntersects(ring) {
		return nil, fmt.Errorf("%w: exterior ring is self-intersecting", ErrInvalidGeometry)
	}

	return orb.Polygon{ring}, nil
}

// PointInOrOnPolygon reports whether the query point lies strictly inside the
// polygon or exactly on its boundary. Boundary points always count as in.
func PointInOrOnPolygon(polygon orb.Polygon, x, y float64) bool {
	return planar.PolygonContains(polygon, orb.Point{x, y})
}

// PolygonArea returns the unsigned planar area of the polygon, in squared
// units of whatever coordinate system the polygon is in.
func PolygonArea(polygon orb.Polygon) float64 {
	return math.Abs(planar.Area(polygon))
}

// PolygonBound returns the polygon's axis-aligned bounding box.
func PolygonBound(polygon orb.Polygon) orb.Bound {
	return polygon.Bound()
}

// FirstVertex returns the first exterior vertex of the polygon. The
// extrapolation code uses it as the anchor for rigid translations.
func FirstVertex(polygon orb.Polygon) orb.Point {
	return polygon[0][0]
}

// Translate returns a copy of the polygon with every vertex shifted by
// (dx, dy). The shape is preserved exactly.
func Translate(polygon orb.Polygon, dx, dy float64) orb.Polygon {
	out := make(orb.Polygon, len(polygon))
	for i, ring := range polygon {
		newRing := make(orb.Ring, len(ring))
		for j, pt := range ring {
			newRing[j] = orb.Point{pt[0] + dx, pt[1] + dy}
		}
		out[i] = newRing
	}
	return out
}

func countDistinctVertices(ring orb.Ring) int {
	seen := make(map[orb.Point]struct{}, len(ring))
	for _, pt := range ring {
		seen[pt] = struct{}{}
	}
	return len(seen)
}

// selfIntersects checks every pair of non-adjacent ring segments for a proper
// crossing. Quadratic in the vertex count, which is fine for storm outlines
// (tens of vertices).
func selfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1 // segments; ring is closed
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			// Skip adjacent segments (they share an endpoint), including the
			// first/last pair which are adjacent through ring closure.
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsCross(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

// segmentsCross reports a proper intersection between segments (a1,a2) and
// (b1,b2): the segments cross at an interior point of both.
func segmentsCross(a1, a2, b1, b2 orb.Point) bool {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(origin, a, b orb.Point) float64 {
	return (a[0]-origin[0])*(b[1]-origin[1]) - (a[1]-origin[1])*(b[0]-origin[0])
}
