package forecast

import (
	"context"
	"math"
	"testing"

	"mrforecast/domain/core"
	"mrforecast/internal/testkit"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func defaultGrid(t *testing.T, size int) []float64 {
	t.Helper()
	grid, adjusted, err := NewGrid(GridSpec{
		LogMin:  DefaultGridLogMin,
		LogMax:  DefaultGridLogMax,
		Size:    size,
		MinSize: DefaultMinGridSize,
		Policy:  GridReject,
	})
	require.NoError(t, err)
	require.False(t, adjusted)
	return grid
}

func TestLikelihoodIsNormalised(t *testing.T) {
	kit := testkit.NewTestKit()
	table, err := kit.PosteriorTable(20)
	require.NoError(t, err)
	grid := defaultGrid(t, 500)

	for i := 0; i < table.Len(); i++ {
		for _, observed := range []float64{-0.5, 0, 0.3, 1.0, 1.2} {
			p, err := Likelihood(observed, grid, table.Row(i))
			require.NoError(t, err, "row %d observed %g", i, observed)
			require.Len(t, p, len(grid))
			assert.InDelta(t, 1.0, floats.Sum(p), 1e-9)
			assert.GreaterOrEqual(t, floats.Min(p), 0.0)
		}
	}
}

func TestLikelihoodPeaksAtLine(t *testing.T) {
	kit := testkit.NewTestKit()
	table, err := kit.LineTable(0, 1, 0.1)
	require.NoError(t, err)
	grid := defaultGrid(t, 951)

	p, err := Likelihood(2.0, grid, table.Row(0))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, grid[floats.MaxIdx(p)], 0.01)
}

func TestLikelihoodDegenerate(t *testing.T) {
	kit := testkit.NewTestKit()
	grid := defaultGrid(t, 200)

	line, err := kit.LineTable(0, 1, 0.01)
	require.NoError(t, err)
	// 5.5 is the largest mean on the grid; 6.5 is 100 scatters away
	_, err = Likelihood(6.5, grid, line.Row(0))
	assert.ErrorIs(t, err, core.ErrDegenerateLikelihood)

	point, err := kit.PointTable()
	require.NoError(t, err)
	_, err = Likelihood(50, grid, point.Row(0))
	assert.ErrorIs(t, err, core.ErrDegenerateLikelihood)

	_, err = Likelihood(math.NaN(), grid, point.Row(0))
	assert.ErrorIs(t, err, core.ErrDegenerateLikelihood)

	_, err = Likelihood(1, nil, point.Row(0))
	assert.ErrorIs(t, err, core.ErrInvalidInputShape)
}

func TestLikelihoodZeroScatterIsPointMass(t *testing.T) {
	kit := testkit.NewTestKit()
	table, err := kit.LineTable(0, 1, 0)
	require.NoError(t, err)
	grid := []float64{0, 1, 2, 3, 4}

	p, err := Likelihood(2, grid, table.Row(0))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 0, 0}, p)

	_, err = Likelihood(2.5, grid, table.Row(0))
	assert.ErrorIs(t, err, core.ErrDegenerateLikelihood)
}

func TestInverseSamplerRecoversForwardInput(t *testing.T) {
	kit := testkit.NewTestKit()
	table, err := kit.PosteriorTable(200)
	require.NoError(t, err)
	ctx := context.Background()

	const n = 2000
	x0 := math.Log10(5)
	values := make([]float64, n)
	for i := range values {
		values[i] = x0
	}

	r := kit.Rand("consistency")
	forward, err := NewForwardSampler(table).Sample(ctx, r, values, UniformQuantiles(r, n))
	require.NoError(t, err)

	inverse, err := NewInverseSampler(table).Sample(ctx, r, forward.Values, defaultGrid(t, 1000))
	require.NoError(t, err)
	require.Len(t, inverse.Values, n)

	mean, err := stats.Mean(inverse.Values)
	require.NoError(t, err)
	std, err := stats.StandardDeviation(inverse.Values)
	require.NoError(t, err)

	assert.InDelta(t, x0, mean, 0.25)
	assert.Less(t, std, 1.0)
}

func TestInverseSamplerDrawsGridPoints(t *testing.T) {
	kit := testkit.NewTestKit()
	table, err := kit.PosteriorTable(30)
	require.NoError(t, err)
	grid := defaultGrid(t, 50)

	draws, err := NewInverseSampler(table).Sample(context.Background(), kit.Rand("grid"), []float64{0.1, 0.5, 1.1}, grid)
	require.NoError(t, err)

	for k, v := range draws.Values {
		assert.Contains(t, grid, v, "sample %d", k)
		assert.Less(t, draws.Rows[k], table.Len())
	}
}

func TestInverseSamplerDeterministicAcrossWorkers(t *testing.T) {
	kit := testkit.NewTestKit()
	table, err := kit.PosteriorTable(40)
	require.NoError(t, err)
	grid := defaultGrid(t, 300)

	observed := make([]float64, 700)
	for i := range observed {
		observed[i] = -0.3 + 1.4*float64(i)/float64(len(observed))
	}

	a, err := NewInverseSampler(table, WithWorkers(1), WithChunkSize(50)).Sample(context.Background(), kit.Rand("inv"), observed, grid)
	require.NoError(t, err)
	b, err := NewInverseSampler(table, WithWorkers(6), WithChunkSize(50)).Sample(context.Background(), kit.Rand("inv"), observed, grid)
	require.NoError(t, err)

	assert.Equal(t, a.Values, b.Values)
	assert.Equal(t, a.Rows, b.Rows)
}

func TestInverseSamplerErrors(t *testing.T) {
	kit := testkit.NewTestKit()
	table, err := kit.PointTable()
	require.NoError(t, err)
	ctx := context.Background()

	s := NewInverseSampler(table, WithMinGridSize(10))
	assert.Equal(t, 10, s.MinGridSize())

	_, err = s.Sample(ctx, kit.Rand("e"), []float64{0.3}, []float64{0, 1, 2})
	assert.ErrorIs(t, err, core.ErrGridTooSparse)

	_, err = s.Sample(ctx, kit.Rand("e"), []float64{0.3, 80}, defaultGrid(t, 100))
	assert.ErrorIs(t, err, core.ErrDegenerateLikelihood)
	assert.Contains(t, err.Error(), "observation 1")

	grid := defaultGrid(t, 20)
	grid[3] = math.NaN()
	_, err = s.Sample(ctx, kit.Rand("e"), []float64{0.3}, grid)
	assert.ErrorIs(t, err, core.ErrInvalidInputShape)
}
