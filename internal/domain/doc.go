// Package domain models per-storm-cell hazard forecasts as produced by an
// upstream tracking-and-classification service, and the gridded probability
// fields this service derives from them.
//
// # Storm objects and distance buffers
//
// A storm object is one storm cell at one valid time. The set of distinct
// valid times in a storm table defines the forecast-initialization times:
// each init time is gridded independently, and no state carries across them.
//
// Around every storm polygon sits an ordered family of distance buffers:
//
//	storm polygon itself      min = NaN, max = d1
//	first annulus             min = d1,  max = d2
//	second annulus            min = d2,  max = d3
//	...
//
// Each buffer carries an independent probability that the hazard (tornado,
// damaging wind) occurs inside that buffer before the lead-time horizon.
// The buffers must abut exactly: buffer i's max distance is buffer i+1's min
// distance, with no gaps and no overlap. A violation aborts the run for that
// init time; skipping the storm instead would silently understate the
// probability mass spread onto the grid.
//
// # Buffer identity
//
// Buffers are correlated across their four parallel representations
// (lat/long polygon, projected polygon, forecast probability, grid-cell
// membership) by BufferKey, a (min, max) pair rounded to whole metres.
// Identity is never derived from column-name or field-name conventions.
//
// # Motion
//
// Storm motion arrives as signed east/north velocity components in m/s and
// is derived into a scalar speed and a geographic bearing (degrees clockwise
// from due north). Extrapolation displaces buffer polygons along that
// bearing by speed × lead time.
//
// # Grids
//
// A ForecastGrid holds the finalized probability field for one init time.
// Cells never covered by any buffer at any lead time are NaN ("no forecast"),
// which is semantically distinct from a 0% forecast. The Matrix type
// preserves that distinction through JSON by encoding NaN as null.
package domain
