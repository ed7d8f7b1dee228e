// Package stormtable reads storm tables from disk and writes finalized
// forecast-grid sets. The table format is a JSON array of storm records,
// one per storm object per valid time, each carrying its distance buffers
// as explicit vertex arrays.
package stormtable

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
	"github.com/couchcryptid/storm-forecast-grids/internal/geometry"
)

type bufferRecord struct {
	// MinDistanceMetres is null when the buffer is the storm polygon itself.
	MinDistanceMetres *float64 `json:"min_distance_metres"`
	MaxDistanceMetres float64  `json:"max_distance_metres"`

	VertexLatitudes  []float64 `json:"vertex_latitudes_deg"`
	VertexLongitudes []float64 `json:"vertex_longitudes_deg"`

	ForecastProbability float64 `json:"forecast_probability"`
}

type stormRecord struct {
	FullID    string    `json:"full_id"`
	ValidTime time.Time `json:"valid_time"`

	CentroidLatitude  float64 `json:"centroid_latitude_deg"`
	CentroidLongitude float64 `json:"centroid_longitude_deg"`

	EastVelocityMS  float64 `json:"east_velocity_m_s"`
	NorthVelocityMS float64 `json:"north_velocity_m_s"`

	Buffers []bufferRecord `json:"distance_buffers"`
}

// ReadTable loads a storm table from a JSON file. Duplicate distance buffers
// on one storm are rejected here, before map keys could silently collapse
// them.
func ReadTable(path string) ([]*domain.StormObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read storm table: %w", err)
	}

	var records []stormRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse storm table: %w", err)
	}

	storms := make([]*domain.StormObject, 0, len(records))
	for i, rec := range records {
		storm, err := rec.toStorm()
		if err != nil {
			return nil, fmt.Errorf("storm record %d (%s): %w", i, rec.FullID, err)
		}
		storms = append(storms, storm)
	}
	return storms, nil
}

func (r stormRecord) toStorm() (*domain.StormObject, error) {
	if r.FullID == "" {
		return nil, fmt.Errorf("missing full_id")
	}
	if r.ValidTime.IsZero() {
		return nil, fmt.Errorf("missing valid_time")
	}
	if len(r.Buffers) == 0 {
		return nil, fmt.Errorf("no distance buffers")
	}

	storm := &domain.StormObject{
		FullID:            r.FullID,
		ValidTime:         r.ValidTime.UTC(),
		CentroidLatitude:  r.CentroidLatitude,
		CentroidLongitude: r.CentroidLongitude,
		EastVelocityMS:    r.EastVelocityMS,
		NorthVelocityMS:   r.NorthVelocityMS,
		Buffers:           make(map[domain.BufferKey]*domain.DistanceBuffer, len(r.Buffers)),
	}

	for _, b := range r.Buffers {
		minDistance := math.NaN()
		if b.MinDistanceMetres != nil {
			minDistance = *b.MinDistanceMetres
		}

		polygon, err := geometry.PolygonFromVertices(b.VertexLongitudes, b.VertexLatitudes)
		if err != nil {
			return nil, fmt.Errorf("buffer %s: %w", domain.NewBufferKey(minDistance, b.MaxDistanceMetres), err)
		}

		key := domain.NewBufferKey(minDistance, b.MaxDistanceMetres)
		if _, exists := storm.Buffers[key]; exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateBuffer, key)
		}

		storm.Buffers[key] = &domain.DistanceBuffer{
			MinDistanceMetres:   minDistance,
			MaxDistanceMetres:   b.MaxDistanceMetres,
			LatLngPolygon:       polygon,
			ForecastProbability: b.ForecastProbability,
		}
	}

	return storm, nil
}
