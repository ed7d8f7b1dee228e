// Command gridforecast builds gridded hazard-probability forecasts from a
// storm table. It runs the grid engine once over the configured table,
// writes the result to disk, and keeps serving it (plus health and metrics
// endpoints) over HTTP until shut down. Kafka publishing and SQLite
// archiving are enabled by configuration.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/storm-forecast-grids/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-forecast-grids/internal/adapter/kafka"
	"github.com/couchcryptid/storm-forecast-grids/internal/adapter/stormtable"
	"github.com/couchcryptid/storm-forecast-grids/internal/archive"
	"github.com/couchcryptid/storm-forecast-grids/internal/config"
	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
	"github.com/couchcryptid/storm-forecast-grids/internal/observability"
	"github.com/couchcryptid/storm-forecast-grids/internal/pipeline"
	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	proj, err := projection.New(cfg.Projection)
	if err != nil {
		logger.Error("invalid projection", "error", err)
		os.Exit(1)
	}

	engine, err := pipeline.New(proj, engineOptions(cfg), logger, metrics)
	if err != nil {
		logger.Error("invalid engine options", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := buildAndDeliver(ctx, cfg, engine, srv, metrics, logger); err != nil {
			logger.Error("grid construction failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// buildAndDeliver runs the engine once and fans the result out to every
// configured sink: the output file, the HTTP server, the archive, and Kafka.
func buildAndDeliver(
	ctx context.Context,
	cfg *config.Config,
	engine *pipeline.Engine,
	srv *httpadapter.Server,
	metrics *observability.Metrics,
	logger *slog.Logger,
) error {
	storms, err := stormtable.ReadTable(cfg.StormTablePath)
	if err != nil {
		return err
	}

	if cfg.StormShapefile != "" {
		outlines, err := stormtable.ReadStormOutlines(cfg.StormShapefile, cfg.StormShapefileID)
		if err != nil {
			return err
		}
		merged := stormtable.MergeStormOutlines(storms, outlines)
		logger.Info("storm outlines merged from shapefile", "outlines", len(outlines), "merged", merged)
	}

	set, err := engine.Run(ctx, storms)
	if err != nil {
		return err
	}

	if err := stormtable.WriteForecastSet(cfg.OutputPath, set); err != nil {
		return err
	}
	logger.Info("forecast set written", "path", cfg.OutputPath, "grids", len(set.Grids))

	srv.SetForecastSet(set)

	if cfg.ArchiveDBPath != "" {
		if err := archiveRun(ctx, cfg.ArchiveDBPath, set, logger); err != nil {
			return err
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		if err := publishRun(ctx, cfg, set, logger); err != nil {
			return err
		}
		metrics.GridsPublished.Add(float64(len(set.Grids)))
	}

	return nil
}

func archiveRun(ctx context.Context, dbPath string, set *domain.GriddedForecastSet, logger *slog.Logger) error {
	store, err := archive.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := store.SaveRun(ctx, set)
	if err != nil {
		return err
	}
	logger.Info("forecast set archived", "db", dbPath, "run_id", runID)
	return nil
}

func publishRun(ctx context.Context, cfg *config.Config, set *domain.GriddedForecastSet, logger *slog.Logger) error {
	publisher := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaGridTopic, logger)
	defer publisher.Close()
	return publisher.PublishSet(ctx, set)
}

func engineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		MinLeadTime:        cfg.MinLeadTime,
		MaxLeadTime:        cfg.MaxLeadTime,
		LeadTimeResolution: cfg.LeadTimeResolution,

		XSpacingMetres: cfg.GridSpacingXMetres,
		YSpacingMetres: cfg.GridSpacingYMetres,

		ProbRadiusMetres: cfg.ProbRadiusMetres,

		Smoothing:            cfg.SmoothingMethod,
		EFoldingRadiusMetres: cfg.SmoothingEFoldingMetres,
		CutoffRadiusMetres:   cfg.SmoothingCutoffMetres,

		InterpToLatLng:      cfg.InterpToLatLngGrid,
		LatitudeSpacingDeg:  cfg.LatitudeSpacingDeg,
		LongitudeSpacingDeg: cfg.LongitudeSpacingDeg,
	}
}
