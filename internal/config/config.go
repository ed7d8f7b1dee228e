// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-forecast-grids/internal/forecast"
	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Input and output locations.
	StormTablePath   string
	StormShapefileID string
	StormShapefile   string
	OutputPath       string
	ArchiveDBPath    string

	// Lead-time window for the forecast grids.
	MinLeadTime        time.Duration
	MaxLeadTime        time.Duration
	LeadTimeResolution time.Duration

	// Planar grid geometry.
	GridSpacingXMetres float64
	GridSpacingYMetres float64

	// Optional lat/long companion grid.
	InterpToLatLngGrid  bool
	LatitudeSpacingDeg  float64
	LongitudeSpacingDeg float64

	// Probability treatment.
	ProbRadiusMetres        float64
	SmoothingMethod         forecast.SmoothingMethod
	SmoothingEFoldingMetres float64
	SmoothingCutoffMetres   float64

	Projection projection.Params

	// Optional Kafka publishing of finalized grids.
	KafkaBrokers   []string
	KafkaGridTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	minLead, err := parseDuration("GRID_MIN_LEAD_TIME", "0s")
	if err != nil {
		return nil, err
	}
	maxLead, err := parseDuration("GRID_MAX_LEAD_TIME", "1h")
	if err != nil {
		return nil, err
	}
	leadResolution, err := parseDuration("GRID_LEAD_TIME_RESOLUTION", "60s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	xSpacing, err := parseFloat("GRID_SPACING_X_METRES", 1000)
	if err != nil {
		return nil, err
	}
	ySpacing, err := parseFloat("GRID_SPACING_Y_METRES", 1000)
	if err != nil {
		return nil, err
	}
	latSpacing, err := parseFloat("LATITUDE_SPACING_DEG", 0.01)
	if err != nil {
		return nil, err
	}
	lngSpacing, err := parseFloat("LONGITUDE_SPACING_DEG", 0.01)
	if err != nil {
		return nil, err
	}
	probRadius, err := parseFloat("PROB_RADIUS_METRES", 10000)
	if err != nil {
		return nil, err
	}
	eFolding, err := parseFloat("SMOOTHING_EFOLDING_METRES", 5000)
	if err != nil {
		return nil, err
	}
	cutoff, err := parseFloat("SMOOTHING_CUTOFF_METRES", 15000)
	if err != nil {
		return nil, err
	}

	smoothing, err := forecast.ParseSmoothingMethod(envOrDefault("SMOOTHING_METHOD", "none"))
	if err != nil {
		return nil, err
	}

	proj, err := parseProjection()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		StormTablePath:   os.Getenv("STORM_TABLE_PATH"),
		StormShapefile:   os.Getenv("STORM_SHAPEFILE_PATH"),
		StormShapefileID: envOrDefault("STORM_SHAPEFILE_ID_FIELD", "storm_id"),
		OutputPath:       envOrDefault("OUTPUT_PATH", "forecast_grids.json"),
		ArchiveDBPath:    os.Getenv("ARCHIVE_DB_PATH"),

		MinLeadTime:        minLead,
		MaxLeadTime:        maxLead,
		LeadTimeResolution: leadResolution,

		GridSpacingXMetres: xSpacing,
		GridSpacingYMetres: ySpacing,

		InterpToLatLngGrid:  envOrDefault("INTERP_TO_LATLNG_GRID", "false") == "true",
		LatitudeSpacingDeg:  latSpacing,
		LongitudeSpacingDeg: lngSpacing,

		ProbRadiusMetres:        probRadius,
		SmoothingMethod:         smoothing,
		SmoothingEFoldingMetres: eFolding,
		SmoothingCutoffMetres:   cutoff,

		Projection: proj,

		KafkaBrokers:   parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaGridTopic: envOrDefault("KAFKA_GRID_TOPIC", "forecast-grids"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.StormTablePath == "" {
		return nil, errors.New("STORM_TABLE_PATH is required")
	}
	if cfg.MinLeadTime < 0 {
		return nil, errors.New("GRID_MIN_LEAD_TIME must not be negative")
	}
	if cfg.MaxLeadTime < cfg.MinLeadTime {
		return nil, errors.New("GRID_MAX_LEAD_TIME must not be before GRID_MIN_LEAD_TIME")
	}
	if cfg.LeadTimeResolution <= 0 {
		return nil, errors.New("GRID_LEAD_TIME_RESOLUTION must be positive")
	}
	if (cfg.MaxLeadTime-cfg.MinLeadTime)%cfg.LeadTimeResolution != 0 {
		return nil, errors.New("lead-time window must be a whole multiple of GRID_LEAD_TIME_RESOLUTION")
	}
	if cfg.GridSpacingXMetres <= 0 || cfg.GridSpacingYMetres <= 0 {
		return nil, errors.New("grid spacings must be positive")
	}
	if cfg.InterpToLatLngGrid && (cfg.LatitudeSpacingDeg <= 0 || cfg.LongitudeSpacingDeg <= 0) {
		return nil, errors.New("lat/long spacings must be positive when INTERP_TO_LATLNG_GRID is true")
	}
	if cfg.ProbRadiusMetres <= 0 {
		return nil, errors.New("PROB_RADIUS_METRES must be positive")
	}
	if cfg.SmoothingMethod != forecast.SmoothingNone {
		if cfg.SmoothingCutoffMetres <= 0 {
			return nil, errors.New("SMOOTHING_CUTOFF_METRES must be positive")
		}
		if cfg.SmoothingMethod == forecast.SmoothingGaussian && cfg.SmoothingEFoldingMetres <= 0 {
			return nil, errors.New("SMOOTHING_EFOLDING_METRES must be positive")
		}
	}

	return cfg, nil
}

// parseProjection assembles projection.Params from the PROJECTION_* and
// STANDARD_PARALLELS variables. The defaults match the RAP model grid.
func parseProjection() (projection.Params, error) {
	family := projection.Family(envOrDefault("PROJECTION_FAMILY", string(projection.LambertConformal)))

	centralLng, err := parseFloat("CENTRAL_LONGITUDE", 265)
	if err != nil {
		return projection.Params{}, err
	}
	centralLat, err := parseFloat("CENTRAL_LATITUDE", 35)
	if err != nil {
		return projection.Params{}, err
	}

	params := projection.Params{
		Family:           family,
		CentralLatitude:  centralLat,
		CentralLongitude: centralLng,
	}

	raw := envOrDefault("STANDARD_PARALLELS", "25,25")
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return projection.Params{}, fmt.Errorf("STANDARD_PARALLELS must be two comma-separated values, got %q", raw)
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return projection.Params{}, fmt.Errorf("invalid STANDARD_PARALLELS: %w", err)
		}
		params.StandardParallels[i] = v
	}

	return params, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := envOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
