// Command genstorms generates a synthetic storm table for exercising the
// grid engine and its test fixtures: a configurable number of storm cells
// drifting northeast across the southern plains, each with the standard
// three-buffer configuration (own outline, 0-5 km, 5-10 km).
//
// Usage:
//
//	go run ./cmd/genstorms -out data/mock/storm_table.json -storms 12 -init-times 3
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/couchcryptid/storm-forecast-grids/internal/adapter/stormtable"
	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
	"github.com/couchcryptid/storm-forecast-grids/internal/geometry"
)

var baseTime = time.Date(2024, time.May, 20, 21, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the storm table JSON")
	numStorms := flag.Int("storms", 10, "storm cells per initialization time")
	numInitTimes := flag.Int("init-times", 2, "number of initialization times, 5 minutes apart")
	seed := flag.Int64("seed", 20240520, "random seed, fixed by default for reproducible fixtures")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	rng := rand.New(rand.NewSource(*seed))

	var storms []*domain.StormObject
	for it := 0; it < *numInitTimes; it++ {
		validTime := baseTime.Add(time.Duration(it) * 5 * time.Minute)
		for i := 0; i < *numStorms; i++ {
			storm, err := makeStorm(rng, i, validTime)
			if err != nil {
				return fmt.Errorf("storm %d at %s: %w", i, validTime.Format(time.RFC3339), err)
			}
			storms = append(storms, storm)
		}
	}

	if err := stormtable.WriteTable(*out, storms); err != nil {
		return err
	}
	log.Printf("wrote %d storms (%d init times) to %s", len(storms), *numInitTimes, *out)
	return nil
}

func makeStorm(rng *rand.Rand, index int, validTime time.Time) (*domain.StormObject, error) {
	// Scatter centroids over a few degrees around southern Oklahoma.
	centroidLat := 34.0 + rng.Float64()*2.5
	centroidLng := 262.0 + rng.Float64()*4.0

	storm := &domain.StormObject{
		FullID:            fmt.Sprintf("2024-%04d_%s", index, validTime.Format("150405")),
		ValidTime:         validTime,
		CentroidLatitude:  centroidLat,
		CentroidLongitude: centroidLng,

		// Drift northeast at 5-20 m/s with some scatter.
		EastVelocityMS:  5 + rng.Float64()*15,
		NorthVelocityMS: 2 + rng.Float64()*10,

		Buffers: make(map[domain.BufferKey]*domain.DistanceBuffer),
	}

	// Probability falls off with distance from the storm.
	buffers := []struct {
		minMetres   float64
		maxMetres   float64
		probability float64
		halfSideDeg float64
	}{
		{math.NaN(), 0, 0.55 + rng.Float64()*0.3, 0.05},
		{0, 5000, 0.25 + rng.Float64()*0.2, 0.10},
		{5000, 10000, 0.05 + rng.Float64()*0.1, 0.15},
	}

	for _, b := range buffers {
		polygon, err := geometry.PolygonFromVertices(
			[]float64{centroidLng - b.halfSideDeg, centroidLng + b.halfSideDeg, centroidLng + b.halfSideDeg, centroidLng - b.halfSideDeg},
			[]float64{centroidLat - b.halfSideDeg, centroidLat - b.halfSideDeg, centroidLat + b.halfSideDeg, centroidLat + b.halfSideDeg},
		)
		if err != nil {
			return nil, err
		}

		key := domain.NewBufferKey(b.minMetres, b.maxMetres)
		storm.Buffers[key] = &domain.DistanceBuffer{
			MinDistanceMetres:   b.minMetres,
			MaxDistanceMetres:   b.maxMetres,
			LatLngPolygon:       polygon,
			ForecastProbability: b.probability,
		}
	}

	return storm, nil
}
