package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
)

// Matrix is a row-major 2-D float64 array that survives JSON round-trips
// with NaN cells intact: NaN marshals to null and null unmarshals to NaN.
// The stock encoder rejects NaN outright, and a gridded forecast uses NaN
// for "no forecast here", which must stay distinct from 0.
type Matrix [][]float64

// MarshalJSON writes NaN cells as null.
func (m Matrix) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		for j, v := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			if math.IsNaN(v) {
				buf.WriteString("null")
				continue
			}
			cell, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf.Write(cell)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads null cells as NaN.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var raw [][]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Matrix, len(raw))
	for i, row := range raw {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = *v
		}
	}
	*m = out
	return nil
}

// ForecastGrid is the finalized probability field for one initialization
// time. Probabilities is indexed [row][column] with row 0 at the smallest y.
// Cells no storm ever covered are NaN, not zero. The geographic fields are
// populated only when the run interpolates to a lat/long grid.
type ForecastGrid struct {
	InitTime time.Time `json:"init_time"`

	Probabilities Matrix `json:"probabilities"`

	Latitudes           []float64 `json:"latitudes,omitempty"`  // °N, ascending
	Longitudes          []float64 `json:"longitudes,omitempty"` // °E in [0, 360), ascending
	LatLngProbabilities Matrix    `json:"latlng_probabilities,omitempty"`
}

// GriddedForecastSet is the full output of one pipeline run: one
// ForecastGrid per initialization time on a shared planar grid.
type GriddedForecastSet struct {
	InitTimes []time.Time `json:"init_times"`

	MinLeadTimeSeconds int `json:"min_lead_time_seconds"`
	MaxLeadTimeSeconds int `json:"max_lead_time_seconds"`

	GridXCoords []float64 `json:"grid_x_coords_metres"` // ascending
	GridYCoords []float64 `json:"grid_y_coords_metres"` // ascending, row 0 first

	Grids []*ForecastGrid `json:"grids"`

	Projection projection.Params `json:"projection"`

	GeneratedAt time.Time `json:"generated_at"`
}
