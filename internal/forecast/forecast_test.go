package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProbabilityByArea(t *testing.T) {
	const radius = 10000.0
	discArea := math.Pi * radius * radius

	tests := []struct {
		name    string
		prob    float64
		area    float64
		want    float64
		wantErr error
	}{
		{
			name: "area equal to reference disc is identity",
			prob: 0.5,
			area: discArea,
			want: 0.5,
		},
		{
			name: "double area dilutes",
			prob: 0.5,
			area: 2 * discArea,
			want: 1 - math.Sqrt(0.5),
		},
		{
			name: "half area concentrates",
			prob: 0.5,
			area: discArea / 2,
			want: 0.75,
		},
		{
			name: "zero probability stays zero",
			prob: 0,
			area: discArea / 10,
			want: 0,
		},
		{
			name: "certainty stays certainty",
			prob: 1,
			area: 5 * discArea,
			want: 1,
		},
		{
			name:    "negative probability",
			prob:    -0.1,
			area:    discArea,
			wantErr: ErrInvalidProbability,
		},
		{
			name:    "probability above one",
			prob:    1.01,
			area:    discArea,
			wantErr: ErrInvalidProbability,
		},
		{
			name:    "NaN probability",
			prob:    math.NaN(),
			area:    discArea,
			wantErr: ErrInvalidProbability,
		},
		{
			name:    "zero area",
			prob:    0.5,
			area:    0,
			wantErr: ErrInvalidProbability,
		},
		{
			name:    "negative area",
			prob:    0.5,
			area:    -100,
			wantErr: ErrInvalidProbability,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeProbabilityByArea(tc.prob, tc.area, radius)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestNormalizeProbabilityByArea_Monotone(t *testing.T) {
	// Larger buffers must never yield higher per-point probabilities.
	prev := math.Inf(1)
	for _, area := range []float64{1e6, 1e7, 1e8, 1e9, 1e10} {
		got, err := NormalizeProbabilityByArea(0.4, area, 10000)
		require.NoError(t, err)
		assert.Less(t, got, prev, "area %v", area)
		prev = got
	}
}

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator(3, 4)

	acc.Add([]int{0, 1}, []int{0, 2}, 0.2)
	acc.Add([]int{1, 2}, []int{2, 3}, 0.6)

	grid := acc.Finalize()
	require.Len(t, grid, 3)
	require.Len(t, grid[0], 4)

	assert.InDelta(t, 0.2, grid[0][0], 1e-12, "single hit keeps its value")
	assert.InDelta(t, 0.4, grid[1][2], 1e-12, "two hits average")
	assert.InDelta(t, 0.6, grid[2][3], 1e-12)
	assert.True(t, math.IsNaN(grid[0][1]), "cell with no hits is NaN")
	assert.True(t, math.IsNaN(grid[2][0]))
}

func TestAccumulator_FinalizeDoesNotConsume(t *testing.T) {
	acc := NewAccumulator(2, 2)
	acc.Add([]int{0}, []int{0}, 0.5)

	first := acc.Finalize()
	acc.Add([]int{0}, []int{0}, 0.9)
	second := acc.Finalize()

	assert.InDelta(t, 0.5, first[0][0], 1e-12)
	assert.InDelta(t, 0.7, second[0][0], 1e-12)
}

func TestAccumulator_Reset(t *testing.T) {
	acc := NewAccumulator(2, 2)
	acc.Add([]int{1}, []int{1}, 0.8)
	acc.Reset()

	grid := acc.Finalize()
	for r := range grid {
		for c := range grid[r] {
			assert.True(t, math.IsNaN(grid[r][c]), "cell (%d,%d)", r, c)
		}
	}
}

func TestParseSmoothingMethod(t *testing.T) {
	for _, valid := range []string{"none", "gaussian", "cressman"} {
		got, err := ParseSmoothingMethod(valid)
		require.NoError(t, err)
		assert.Equal(t, SmoothingMethod(valid), got)
	}

	_, err := ParseSmoothingMethod("boxcar")
	assert.ErrorIs(t, err, ErrUnknownSmoothingMethod)
}
