// Package motion advances storm polygons along their motion vectors.
//
// Extrapolation is a rigid translation: the geodesic displacement is
// computed once, from the polygon's first vertex, and applied to every
// vertex. The storm's shape is frozen; only its position changes. This is
// intentional and cheap, and over the lead times used here (minutes to a
// couple of hours) the shape distortion a per-vertex re-projection would
// capture is far below the grid spacing.
package motion

import (
	"math"
	"time"

	"github.com/couchcryptid/storm-forecast-grids/internal/geometry"
	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
	"github.com/paulmach/orb"
)

// ExtrapolatePolygon displaces a lat/long polygon along a geodesic path.
// speed is in m/s and bearing in degrees clockwise from north; the
// displacement distance is speed × leadTime.
func ExtrapolatePolygon(latlngPolygon orb.Polygon, speedMS, bearingDeg float64, leadTime time.Duration) orb.Polygon {
	distance := speedMS * leadTime.Seconds()
	if distance == 0 {
		return geometry.Translate(latlngPolygon, 0, 0)
	}

	start := geometry.FirstVertex(latlngPolygon) // (lon, lat)
	endLat, endLng := displacePoint(start[1], start[0], distance, bearingDeg)

	dLng := endLng - start[0]
	dLat := endLat - start[1]
	return geometry.Translate(latlngPolygon, dLng, dLat)
}

// displacePoint returns the endpoint of a geodesic of the given length and
// bearing from (lat, lng), on the same sphere the projections use.
func displacePoint(latDeg, lngDeg, distanceMetres, bearingDeg float64) (endLat, endLng float64) {
	phi := latDeg * math.Pi / 180
	lambda := lngDeg * math.Pi / 180
	theta := bearingDeg * math.Pi / 180
	delta := distanceMetres / projection.EarthRadiusMetres

	sinPhi2 := math.Sin(phi)*math.Cos(delta) + math.Cos(phi)*math.Sin(delta)*math.Cos(theta)
	phi2 := math.Asin(sinPhi2)
	lambda2 := lambda + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi),
		math.Cos(delta)-math.Sin(phi)*sinPhi2,
	)

	return phi2 * 180 / math.Pi, lambda2 * 180 / math.Pi
}

// TranslateGridMembership shifts previously computed grid-membership index
// lists by the whole-cell offset implied by the polygon's displacement,
// instead of re-rasterizing at every lead time. The shift is read off the
// first vertex of the original and extrapolated planar polygons and rounded
// to the nearest whole cell per axis; the sub-cell residue (at most half a
// cell) is accepted.
//
// Indices shifted off the grid are dropped: a buffer that has moved past the
// grid edge simply covers fewer (possibly zero) cells.
func TranslateGridMembership(
	origRows, origCols []int,
	origXY, extrapXY orb.Polygon,
	xSpacing, ySpacing float64,
	numRows, numCols int,
) (rows, cols []int) {
	origFirst := geometry.FirstVertex(origXY)
	extrapFirst := geometry.FirstVertex(extrapXY)

	colShift := int(math.Round((extrapFirst[0] - origFirst[0]) / xSpacing))
	rowShift := int(math.Round((extrapFirst[1] - origFirst[1]) / ySpacing))

	for i := range origRows {
		row := origRows[i] + rowShift
		col := origCols[i] + colShift
		if row < 0 || row >= numRows || col < 0 || col >= numCols {
			continue
		}
		rows = append(rows, row)
		cols = append(cols, col)
	}
	return rows, cols
}
