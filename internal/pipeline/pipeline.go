// Package pipeline orchestrates forecast-grid construction: it takes a table
// of storm objects with nested distance buffers and produces one dense
// probability grid per initialization time, all on a shared planar grid.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
	"github.com/couchcryptid/storm-forecast-grids/internal/forecast"
	"github.com/couchcryptid/storm-forecast-grids/internal/grids"
	"github.com/couchcryptid/storm-forecast-grids/internal/motion"
	"github.com/couchcryptid/storm-forecast-grids/internal/observability"
	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
	"github.com/couchcryptid/storm-forecast-grids/internal/smoothing"
)

// maxStormSpeedMS bounds how far any storm can plausibly travel, and with it
// the margin added around the storm table's extent so extrapolated buffers
// stay on the grid.
const maxStormSpeedMS = 60.0

// ErrEmptyStormTable indicates a run with no storm objects to grid.
var ErrEmptyStormTable = errors.New("storm table is empty")

// Options configures one grid construction run.
type Options struct {
	MinLeadTime        time.Duration
	MaxLeadTime        time.Duration
	LeadTimeResolution time.Duration

	XSpacingMetres float64
	YSpacingMetres float64

	ProbRadiusMetres float64

	Smoothing            forecast.SmoothingMethod
	EFoldingRadiusMetres float64
	CutoffRadiusMetres   float64

	InterpToLatLng      bool
	LatitudeSpacingDeg  float64
	LongitudeSpacingDeg float64
}

func (o Options) validate() error {
	if o.MinLeadTime < 0 {
		return errors.New("min lead time must not be negative")
	}
	if o.MaxLeadTime < o.MinLeadTime {
		return errors.New("max lead time must not be before min lead time")
	}
	if o.LeadTimeResolution <= 0 {
		return errors.New("lead time resolution must be positive")
	}
	if (o.MaxLeadTime-o.MinLeadTime)%o.LeadTimeResolution != 0 {
		return errors.New("lead-time window must be a whole multiple of the resolution")
	}
	if o.XSpacingMetres <= 0 || o.YSpacingMetres <= 0 {
		return errors.New("grid spacings must be positive")
	}
	if o.ProbRadiusMetres <= 0 {
		return errors.New("probability radius must be positive")
	}
	switch o.Smoothing {
	case forecast.SmoothingNone:
	case forecast.SmoothingGaussian:
		if o.EFoldingRadiusMetres <= 0 || o.CutoffRadiusMetres <= 0 {
			return errors.New("gaussian smoothing radii must be positive")
		}
	case forecast.SmoothingCressman:
		if o.CutoffRadiusMetres <= 0 {
			return errors.New("cressman cutoff radius must be positive")
		}
	default:
		return fmt.Errorf("%w: %q", forecast.ErrUnknownSmoothingMethod, o.Smoothing)
	}
	if o.InterpToLatLng && (o.LatitudeSpacingDeg <= 0 || o.LongitudeSpacingDeg <= 0) {
		return errors.New("lat/long spacings must be positive when interpolation is enabled")
	}
	return nil
}

// Engine builds gridded forecasts. It is safe to run repeatedly; each Run is
// independent.
type Engine struct {
	proj    *projection.Projection
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates an Engine, validating the options up front.
func New(proj *projection.Projection, opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		proj:    proj,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// CheckReadiness returns nil once the engine has finalized at least one
// forecast grid, or an error describing why the service is not yet ready.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no forecast grid has been built yet")
	}
	return nil
}

// Run builds the full gridded forecast set for one storm table. The storms
// must all carry the same distance-buffer configuration; a gap, overlap, or
// mismatch is an input error and fails the whole run.
func (e *Engine) Run(ctx context.Context, storms []*domain.StormObject) (*domain.GriddedForecastSet, error) {
	e.metrics.EngineRunning.Set(1)
	defer e.metrics.EngineRunning.Set(0)

	if len(storms) == 0 {
		return nil, ErrEmptyStormTable
	}

	keys, err := domain.SharedBufferKeys(storms)
	if err != nil {
		e.metrics.BuildErrors.Inc()
		return nil, err
	}
	if err := domain.ValidateBufferSet(keys); err != nil {
		e.metrics.BuildErrors.Inc()
		return nil, err
	}

	prepared, xs, ys, err := e.prepare(storms)
	if err != nil {
		e.metrics.BuildErrors.Inc()
		return nil, err
	}
	e.metrics.GridCellCount.Observe(float64(len(xs) * len(ys)))

	initTimes := domain.InitTimes(storms)
	byInitTime := groupByInitTime(prepared)
	leadTimes := e.leadTimes()

	e.logger.Info("grid construction starting",
		"storms", len(storms),
		"init_times", len(initTimes),
		"lead_times", len(leadTimes),
		"grid_rows", len(ys),
		"grid_columns", len(xs),
	)

	set := &domain.GriddedForecastSet{
		InitTimes:          initTimes,
		MinLeadTimeSeconds: int(e.opts.MinLeadTime.Seconds()),
		MaxLeadTimeSeconds: int(e.opts.MaxLeadTime.Seconds()),
		GridXCoords:        xs,
		GridYCoords:        ys,
		Projection:         e.proj.Params(),
		GeneratedAt:        domain.Now(),
	}

	acc := forecast.NewAccumulator(len(ys), len(xs))
	for _, initTime := range initTimes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		grid, err := e.buildInitTime(acc, byInitTime[initTime], leadTimes, xs, ys)
		if err != nil {
			e.metrics.BuildErrors.Inc()
			return nil, fmt.Errorf("build grid for %s: %w", initTime.Format(time.RFC3339), err)
		}
		grid.InitTime = initTime
		set.Grids = append(set.Grids, grid)

		e.metrics.InitTimesCompleted.Inc()
		e.ready.Store(true)
	}

	e.logger.Info("grid construction complete", "grids", len(set.Grids))
	return set, nil
}

// buildInitTime accumulates every storm's buffers over every lead time and
// finalizes one forecast grid. The accumulator is reset on the way in so a
// single instance serves all initialization times.
func (e *Engine) buildInitTime(
	acc *forecast.Accumulator,
	storms []*preparedStorm,
	leadTimes []time.Duration,
	xs, ys []float64,
) (*domain.ForecastGrid, error) {
	start := time.Now()
	acc.Reset()

	for _, storm := range storms {
		e.accumulateStorm(acc, storm, leadTimes, len(ys), len(xs))
		e.metrics.StormsProcessed.Inc()
	}

	probabilities := domain.Matrix(acc.Finalize())
	probabilities = e.smooth(probabilities)

	grid := &domain.ForecastGrid{Probabilities: probabilities}

	if e.opts.InterpToLatLng {
		latlng, lats, lngs, err := grids.InterpToLatLngGrid(
			probabilities, xs, ys, e.proj,
			e.opts.LatitudeSpacingDeg, e.opts.LongitudeSpacingDeg,
		)
		if err != nil {
			return nil, err
		}
		grid.LatLngProbabilities = latlng
		grid.Latitudes = lats
		grid.Longitudes = lngs
	}

	e.metrics.GridBuildDuration.Observe(time.Since(start).Seconds())
	return grid, nil
}

// accumulateStorm adds one storm's contribution at every lead time. The base
// grid membership was rasterized once during prepare; each lead time only
// shifts it by the whole-cell offset of the extrapolated polygon.
func (e *Engine) accumulateStorm(
	acc *forecast.Accumulator,
	storm *preparedStorm,
	leadTimes []time.Duration,
	numRows, numCols int,
) {
	for _, buffer := range storm.buffers {
		if len(buffer.rows) == 0 {
			continue
		}

		for _, leadTime := range leadTimes {
			extrapLatLng := motion.ExtrapolatePolygon(buffer.latlng, storm.speedMS, storm.bearingDeg, leadTime)
			extrapXY, err := e.projectPolygon(extrapLatLng)
			if err != nil {
				// Only possible if extrapolation pushed a vertex past a pole.
				e.logger.Warn("extrapolated buffer unprojectable, skipping lead time",
					"storm", storm.fullID,
					"buffer", buffer.key.String(),
					"lead_time", leadTime,
					"error", err,
				)
				continue
			}

			rows, cols := motion.TranslateGridMembership(
				buffer.rows, buffer.cols,
				buffer.xy, extrapXY,
				e.opts.XSpacingMetres, e.opts.YSpacingMetres,
				numRows, numCols,
			)
			acc.Add(rows, cols, buffer.probability)
		}
	}
}

func (e *Engine) smooth(grid domain.Matrix) domain.Matrix {
	switch e.opts.Smoothing {
	case forecast.SmoothingGaussian:
		start := time.Now()
		grid = smoothing.ApplyGaussian(grid, e.opts.XSpacingMetres, e.opts.YSpacingMetres,
			e.opts.EFoldingRadiusMetres, e.opts.CutoffRadiusMetres)
		e.metrics.SmoothingDuration.WithLabelValues(string(forecast.SmoothingGaussian)).Observe(time.Since(start).Seconds())
	case forecast.SmoothingCressman:
		start := time.Now()
		grid = smoothing.ApplyCressman(grid, e.opts.XSpacingMetres, e.opts.YSpacingMetres,
			e.opts.CutoffRadiusMetres)
		e.metrics.SmoothingDuration.WithLabelValues(string(forecast.SmoothingCressman)).Observe(time.Since(start).Seconds())
	}
	return grid
}

// leadTimes enumerates the lead-time ladder, inclusive of both ends. Options
// validation guarantees the window is a whole multiple of the resolution, so
// the ladder always reaches MaxLeadTime exactly.
func (e *Engine) leadTimes() []time.Duration {
	var times []time.Duration
	for t := e.opts.MinLeadTime; t <= e.opts.MaxLeadTime; t += e.opts.LeadTimeResolution {
		times = append(times, t)
	}
	return times
}

func groupByInitTime(storms []*preparedStorm) map[time.Time][]*preparedStorm {
	groups := make(map[time.Time][]*preparedStorm)
	for _, s := range storms {
		groups[s.initTime] = append(groups[s.initTime], s)
	}
	return groups
}
