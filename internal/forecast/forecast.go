// Package forecast turns per-buffer event probabilities into gridded
// probability fields.
//
// # Area normalization
//
// A probability attached to a distance buffer answers "will the event occur
// anywhere inside this buffer". Spreading that value unchanged over every
// grid cell inside the buffer would overstate the per-point risk for large
// buffers and understate it for small ones. Treating cells as independent,
// the per-point probability p' inside a buffer of area A satisfies
//
//	1 - p = (1 - p')^(A / a)
//
// where a = pi r^2 is the area of the reference disc. Solving for p' gives
// the normalization applied here.
//
// # Accumulation
//
// Grids from successive lead times are combined with a running sum and a
// per-cell hit count; the finalized value is the mean over lead times that
// actually covered the cell. Cells never covered finalize to NaN, which is
// distinct from a forecast of zero.
package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidProbability reports a probability outside [0, 1] or a
	// non-positive buffer area.
	ErrInvalidProbability = errors.New("invalid probability")

	// ErrUnknownSmoothingMethod reports an unrecognized smoothing method name.
	ErrUnknownSmoothingMethod = errors.New("unknown smoothing method")
)

// SmoothingMethod selects the spatial filter applied to finalized grids.
type SmoothingMethod string

const (
	SmoothingNone     SmoothingMethod = "none"
	SmoothingGaussian SmoothingMethod = "gaussian"
	SmoothingCressman SmoothingMethod = "cressman"
)

// ParseSmoothingMethod maps a configuration string to a SmoothingMethod.
func ParseSmoothingMethod(s string) (SmoothingMethod, error) {
	switch SmoothingMethod(s) {
	case SmoothingNone, SmoothingGaussian, SmoothingCressman:
		return SmoothingMethod(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSmoothingMethod, s)
	}
}

// NormalizeProbabilityByArea converts a whole-buffer probability into a
// per-point probability, referenced to a disc of the given radius. Buffers
// larger than the reference disc are diluted, smaller ones concentrated.
func NormalizeProbabilityByArea(probability, areaMetres2, radiusMetres float64) (float64, error) {
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		return 0, fmt.Errorf("%w: %v not in [0, 1]", ErrInvalidProbability, probability)
	}
	if !(areaMetres2 > 0) {
		return 0, fmt.Errorf("%w: buffer area %v must be positive", ErrInvalidProbability, areaMetres2)
	}
	if !(radiusMetres > 0) {
		return 0, fmt.Errorf("%w: reference radius %v must be positive", ErrInvalidProbability, radiusMetres)
	}

	exponent := math.Pi * radiusMetres * radiusMetres / areaMetres2
	return 1 - math.Pow(1-probability, exponent), nil
}

// Accumulator keeps a running per-cell probability sum and hit count over
// the lead times of one initial time.
type Accumulator struct {
	sum   *mat.Dense
	count *mat.Dense
}

// NewAccumulator returns an accumulator for a numRows by numCols grid.
func NewAccumulator(numRows, numCols int) *Accumulator {
	return &Accumulator{
		sum:   mat.NewDense(numRows, numCols, nil),
		count: mat.NewDense(numRows, numCols, nil),
	}
}

// Add records a probability at each (rows[i], cols[i]) cell. The index
// slices must be the same length; they come from the rasterizer, which
// guarantees in-bounds values.
func (a *Accumulator) Add(rows, cols []int, probability float64) {
	for i := range rows {
		r, c := rows[i], cols[i]
		a.sum.Set(r, c, a.sum.At(r, c)+probability)
		a.count.Set(r, c, a.count.At(r, c)+1)
	}
}

// Finalize returns the per-cell mean probability. Cells with no hits are
// NaN. The accumulator is unchanged and may keep accumulating.
func (a *Accumulator) Finalize() [][]float64 {
	numRows, numCols := a.sum.Dims()
	out := make([][]float64, numRows)
	for r := 0; r < numRows; r++ {
		out[r] = make([]float64, numCols)
		for c := 0; c < numCols; c++ {
			n := a.count.At(r, c)
			if n == 0 {
				out[r][c] = math.NaN()
				continue
			}
			out[r][c] = a.sum.At(r, c) / n
		}
	}
	return out
}

// Reset zeroes the sums and counts so the accumulator can serve the next
// initial time without reallocating.
func (a *Accumulator) Reset() {
	a.sum.Zero()
	a.count.Zero()
}
