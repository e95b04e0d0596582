package forecast

import (
	"context"
	"fmt"
	"math/rand/v2"

	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
	"mrforecast/domain/piecewise"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// InverseSampler infers the log independent variable from observed log
// dependent values (log mass from log radius) by a categorical draw over a
// discretised grid.
type InverseSampler struct {
	table *hyper.Table
	opts  options
}

// NewInverseSampler creates an inverse sampler over a shared table
func NewInverseSampler(table *hyper.Table, opts ...Option) *InverseSampler {
	return &InverseSampler{
		table: table,
		opts:  buildOptions(opts),
	}
}

// MinGridSize returns the smallest grid Sample accepts
func (s *InverseSampler) MinGridSize() int {
	return s.opts.minGridSize
}

// Sample draws one grid point per observation. The grid resolution trades
// accuracy against cost: coarse grids bias samples toward grid nodes.
// A degenerate observation fails the whole call.
func (s *InverseSampler) Sample(ctx context.Context, rng *rand.Rand, observed, grid []float64) (*Draws, error) {
	if len(grid) < s.opts.minGridSize {
		return nil, fmt.Errorf("%w: %d points, minimum %d", core.ErrGridTooSparse, len(grid), s.opts.minGridSize)
	}
	if floats.HasNaN(grid) {
		return nil, core.NewShapeError("grid contains NaN")
	}

	out := newDraws(len(observed))
	err := s.opts.fanOut(ctx, rng, len(observed), func(r *rand.Rand, lo, hi int) error {
		p := make([]float64, len(grid))
		for k := lo; k < hi; k++ {
			idx, row := s.table.Draw(r)
			m, err := piecewise.Build(row)
			if err != nil {
				return fmt.Errorf("observation %d: %w", k, err)
			}
			if err := fillLikelihood(p, observed[k], grid, m); err != nil {
				return fmt.Errorf("observation %d (row %d): %w", k, idx, err)
			}
			j := int(distuv.NewCategorical(p, r).Rand())
			out.Values[k] = grid[j]
			out.Rows[k] = idx
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
