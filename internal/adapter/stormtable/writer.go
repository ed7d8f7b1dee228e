package stormtable

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
)

// WriteForecastSet writes a finalized forecast-grid set as indented JSON,
// creating parent directories as needed. NaN cells are written as null.
func WriteForecastSet(path string, set *domain.GriddedForecastSet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal forecast set: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write forecast set: %w", err)
	}
	return nil
}

// WriteTable writes storms back out in the table format ReadTable accepts.
// Buffer vertex lists are stored open; the closing vertex is dropped.
func WriteTable(path string, storms []*domain.StormObject) error {
	records := make([]stormRecord, 0, len(storms))
	for _, storm := range storms {
		rec := stormRecord{
			FullID:            storm.FullID,
			ValidTime:         storm.ValidTime.UTC(),
			CentroidLatitude:  storm.CentroidLatitude,
			CentroidLongitude: storm.CentroidLongitude,
			EastVelocityMS:    storm.EastVelocityMS,
			NorthVelocityMS:   storm.NorthVelocityMS,
		}

		for _, key := range storm.SortedBufferKeys() {
			buffer := storm.Buffers[key]

			b := bufferRecord{
				MaxDistanceMetres:   buffer.MaxDistanceMetres,
				ForecastProbability: buffer.ForecastProbability,
			}
			if !math.IsNaN(buffer.MinDistanceMetres) {
				minDistance := buffer.MinDistanceMetres
				b.MinDistanceMetres = &minDistance
			}

			ring := buffer.LatLngPolygon[0]
			for _, pt := range ring[:len(ring)-1] {
				b.VertexLongitudes = append(b.VertexLongitudes, pt[0])
				b.VertexLatitudes = append(b.VertexLatitudes, pt[1])
			}
			rec.Buffers = append(rec.Buffers, b)
		}

		records = append(records, rec)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storm table: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write storm table: %w", err)
	}
	return nil
}

// ReadForecastSet loads a forecast-grid set written by WriteForecastSet.
func ReadForecastSet(path string) (*domain.GriddedForecastSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read forecast set: %w", err)
	}

	var set domain.GriddedForecastSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse forecast set: %w", err)
	}
	return &set, nil
}
