package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
	"github.com/couchcryptid/storm-forecast-grids/internal/forecast"
	"github.com/couchcryptid/storm-forecast-grids/internal/geometry"
	"github.com/couchcryptid/storm-forecast-grids/internal/grids"
)

// preparedStorm is one storm's run-local derived state: motion vector,
// planar buffer polygons, area-normalized probabilities, and lead-time-zero
// grid membership. The input StormObject is never written to, so repeated
// Runs over the same table start from the same raw values.
type preparedStorm struct {
	fullID   string
	initTime time.Time

	speedMS    float64
	bearingDeg float64

	buffers []preparedBuffer
}

// preparedBuffer pairs one distance buffer's raw geometry with everything
// the accumulation loop needs for it.
type preparedBuffer struct {
	key domain.BufferKey

	latlng orb.Polygon
	xy     orb.Polygon

	probability float64 // area-normalized

	rows, cols []int
}

// prepare derives everything Run needs before the per-init-time loop: storm
// motion vectors, planar buffer polygons, area-normalized probabilities, the
// shared grid, and each buffer's lead-time-zero grid membership.
//
// The grid spans every planar polygon in the table plus a margin wide enough
// that no buffer can be extrapolated past the edge within the lead-time
// window.
func (e *Engine) prepare(storms []*domain.StormObject) (prepared []*preparedStorm, xs, ys []float64, err error) {
	var bound orb.Bound
	first := true

	prepared = make([]*preparedStorm, 0, len(storms))
	for _, storm := range storms {
		ps := &preparedStorm{
			fullID:   storm.FullID,
			initTime: storm.ValidTime,
		}
		ps.speedMS, ps.bearingDeg = storm.Motion()

		for _, key := range storm.SortedBufferKeys() {
			buffer := storm.Buffers[key]
			pb := preparedBuffer{
				key:         key,
				latlng:      buffer.LatLngPolygon,
				probability: buffer.ForecastProbability,
			}

			pb.xy, err = e.projectPolygon(buffer.LatLngPolygon)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("project buffer %s of storm %s: %w", key, storm.FullID, err)
			}

			// Buffers with NaN vertices project to NaN: their area and bound
			// are meaningless and they never cover a grid cell, so they are
			// left out of normalization and the grid-extent union.
			area := geometry.PolygonArea(pb.xy)
			if math.IsNaN(area) {
				ps.buffers = append(ps.buffers, pb)
				continue
			}

			pb.probability, err = forecast.NormalizeProbabilityByArea(
				pb.probability, area, e.opts.ProbRadiusMetres)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("normalize buffer %s of storm %s: %w", key, storm.FullID, err)
			}

			b := geometry.PolygonBound(pb.xy)
			if !hasNaN(b) {
				if first {
					bound = b
					first = false
				} else {
					bound = bound.Union(b)
				}
			}

			ps.buffers = append(ps.buffers, pb)
		}

		prepared = append(prepared, ps)
	}

	if first {
		return nil, nil, nil, fmt.Errorf("%w: no buffer polygon has finite coordinates", ErrEmptyStormTable)
	}

	margin := maxStormSpeedMS * e.opts.MaxLeadTime.Seconds()
	xs, ys = grids.EnclosingXYGrid(bound, e.opts.XSpacingMetres, e.opts.YSpacingMetres, margin)

	for _, ps := range prepared {
		for i := range ps.buffers {
			pb := &ps.buffers[i]
			pb.rows, pb.cols = grids.FindGridPointsInPolygon(pb.xy, xs, ys)
			e.metrics.BuffersRasterized.Inc()
		}
	}

	return prepared, xs, ys, nil
}

func hasNaN(b orb.Bound) bool {
	return math.IsNaN(b.Min[0]) || math.IsNaN(b.Min[1]) || math.IsNaN(b.Max[0]) || math.IsNaN(b.Max[1])
}

// projectPolygon maps a lat/long polygon into the run's planar system,
// ring by ring.
func (e *Engine) projectPolygon(latlng orb.Polygon) (orb.Polygon, error) {
	out := make(orb.Polygon, len(latlng))
	for r, ring := range latlng {
		lats := make([]float64, len(ring))
		lngs := make([]float64, len(ring))
		for i, pt := range ring {
			lngs[i] = pt[0]
			lats[i] = pt[1]
		}

		pxs, pys, err := e.proj.LatLonsToXY(lats, lngs, 0, 0)
		if err != nil {
			return nil, err
		}

		projected := make(orb.Ring, len(ring))
		for i := range projected {
			projected[i] = orb.Point{pxs[i], pys[i]}
		}
		out[r] = projected
	}
	return out, nil
}
