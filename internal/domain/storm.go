package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/paulmach/orb"
)

var (
	// ErrNonAbuttingBuffers indicates a buffer set with a gap or overlap
	// between adjacent distance buffers.
	ErrNonAbuttingBuffers = errors.New("distance buffers are not abutting")

	// ErrDuplicateBuffer indicates two buffers sharing the same
	// (min, max) distance pair.
	ErrDuplicateBuffer = errors.New("duplicate distance buffer")
)

// BufferKey is the canonical identity of a distance buffer. Distances are
// rounded to whole metres so keys survive float round-trips through file
// formats. MinMetres is -1 when the buffer is the storm polygon itself
// (no inner radius).
type BufferKey struct {
	MinMetres int64 `json:"min_metres"`
	MaxMetres int64 `json:"max_metres"`
}

// NewBufferKey builds the canonical key for a (min, max) distance pair.
// A NaN minimum distance marks the storm polygon itself.
func NewBufferKey(minDistanceMetres, maxDistanceMetres float64) BufferKey {
	minMetres := int64(-1)
	if !math.IsNaN(minDistanceMetres) {
		minMetres = int64(math.Round(minDistanceMetres))
	}
	return BufferKey{
		MinMetres: minMetres,
		MaxMetres: int64(math.Round(maxDistanceMetres)),
	}
}

// IsStormPolygon reports whether this buffer is the storm's own outline
// rather than an annulus around it.
func (k BufferKey) IsStormPolygon() bool { return k.MinMetres < 0 }

func (k BufferKey) String() string {
	if k.IsStormPolygon() {
		return fmt.Sprintf("storm-%dm", k.MaxMetres)
	}
	return fmt.Sprintf("%d-%dm", k.MinMetres, k.MaxMetres)
}

// DistanceBuffer is one annular (or disk) region around a storm, carrying
// its own hazard probability. Everything here is authored upstream and
// read-only to the pipeline; projected polygons, grid membership, and
// area-normalized probabilities live in run-local state instead.
type DistanceBuffer struct {
	MinDistanceMetres float64 // NaN when the buffer is the storm polygon itself
	MaxDistanceMetres float64

	LatLngPolygon orb.Polygon // closed ring of (lon °E, lat °N) vertices

	ForecastProbability float64 // [0, 1], raw (not area-normalized)
}

// Key returns the buffer's canonical identity.
func (b *DistanceBuffer) Key() BufferKey {
	return NewBufferKey(b.MinDistanceMetres, b.MaxDistanceMetres)
}

// StormObject is one storm cell at one valid (initialization) time, with its
// nested distance buffers and motion vector.
type StormObject struct {
	FullID    string
	ValidTime time.Time

	CentroidLatitude  float64
	CentroidLongitude float64

	EastVelocityMS  float64 // m/s, signed
	NorthVelocityMS float64 // m/s, signed

	Buffers map[BufferKey]*DistanceBuffer
}

// Motion converts the storm's (u, v) velocity components into speed and
// compass bearing. A stationary storm gets bearing 0.
func (s *StormObject) Motion() (speedMS, bearingDeg float64) {
	speedMS = math.Hypot(s.EastVelocityMS, s.NorthVelocityMS)
	if speedMS == 0 {
		return 0, 0
	}
	bearingDeg = math.Atan2(s.EastVelocityMS, s.NorthVelocityMS) * 180 / math.Pi
	if bearingDeg < 0 {
		bearingDeg += 360
	}
	return speedMS, bearingDeg
}

// SortedBufferKeys returns the storm's buffer keys in ascending order of
// maximum distance, the order the pipeline iterates buffers in.
func (s *StormObject) SortedBufferKeys() []BufferKey {
	keys := make([]BufferKey, 0, len(s.Buffers))
	for k := range s.Buffers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].MaxMetres < keys[j].MaxMetres })
	return keys
}

// ValidateBufferSet checks that a buffer set is usable for gridding: keys are
// unique, every buffer spans a positive distance range, and when sorted by
// maximum distance each buffer's minimum equals the previous buffer's
// maximum. A violation is a configuration error, never silently skipped,
// because dropping a buffer would understate probability coverage.
func ValidateBufferSet(keys []BufferKey) error {
	sorted := make([]BufferKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].MaxMetres != sorted[j].MaxMetres {
			return sorted[i].MaxMetres < sorted[j].MaxMetres
		}
		return sorted[i].MinMetres < sorted[j].MinMetres
	})

	for j, key := range sorted {
		if key.IsStormPolygon() {
			if key.MaxMetres < 0 {
				return fmt.Errorf("%w: buffer %s has negative max distance", ErrNonAbuttingBuffers, key)
			}
		} else if key.MaxMetres <= key.MinMetres {
			return fmt.Errorf("%w: buffer %s has max distance <= min distance", ErrNonAbuttingBuffers, key)
		}

		if j == 0 {
			continue
		}
		prev := sorted[j-1]
		if key == prev {
			return fmt.Errorf("%w: %s", ErrDuplicateBuffer, key)
		}
		if key.MinMetres != prev.MaxMetres {
			return fmt.Errorf(
				"%w: min distance of buffer %s does not equal max distance of buffer %s",
				ErrNonAbuttingBuffers, key, prev,
			)
		}
	}
	return nil
}

// SharedBufferKeys returns the buffer-key set common to every storm in the
// table, verifying along the way that all storms carry the same buffers.
// A mismatch means the upstream tracking output is malformed.
func SharedBufferKeys(storms []*StormObject) ([]BufferKey, error) {
	if len(storms) == 0 {
		return nil, nil
	}

	keys := storms[0].SortedBufferKeys()
	for _, storm := range storms[1:] {
		if len(storm.Buffers) != len(keys) {
			return nil, fmt.Errorf(
				"storm %s at %s has %d distance buffers, expected %d",
				storm.FullID, storm.ValidTime.Format(time.RFC3339), len(storm.Buffers), len(keys),
			)
		}
		for _, k := range keys {
			if _, ok := storm.Buffers[k]; !ok {
				return nil, fmt.Errorf(
					"storm %s at %s is missing distance buffer %s",
					storm.FullID, storm.ValidTime.Format(time.RFC3339), k,
				)
			}
		}
	}
	return keys, nil
}

// InitTimes returns the distinct valid times across the table, ascending.
// Each one becomes a forecast-initialization time.
func InitTimes(storms []*StormObject) []time.Time {
	seen := make(map[time.Time]struct{})
	var times []time.Time
	for _, s := range storms {
		if _, ok := seen[s.ValidTime]; ok {
			continue
		}
		seen[s.ValidTime] = struct{}{}
		times = append(times, s.ValidTime)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}
