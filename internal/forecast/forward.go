package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
	"mrforecast/domain/piecewise"

	"gonum.org/v1/gonum/stat/distuv"
)

// ForwardSampler predicts the log dependent variable from the log
// independent variable (log radius from log mass).
type ForwardSampler struct {
	table *hyper.Table
	opts  options
}

// NewForwardSampler creates a forward sampler over a shared table
func NewForwardSampler(table *hyper.Table, opts ...Option) *ForwardSampler {
	return &ForwardSampler{
		table: table,
		opts:  buildOptions(opts),
	}
}

// Predict inverts the Normal CDF of x's segment at quantile q for one draw.
// Zero scatter degenerates to the line itself.
func Predict(x, q float64, row hyper.Row) (float64, error) {
	m, err := piecewise.Build(row)
	if err != nil {
		return 0, err
	}
	_, mu, sigma := m.Evaluate(x)
	return quantile(mu, sigma, q), nil
}

func quantile(mu, sigma, q float64) float64 {
	if sigma == 0 {
		return mu
	}
	return distuv.Normal{Mu: mu, Sigma: sigma}.Quantile(q)
}

// Sample draws one prediction per value. values are log independent-variable
// values already validated against the model range; quantiles are uniform
// draws in [0, 1] of the same length.
func (s *ForwardSampler) Sample(ctx context.Context, rng *rand.Rand, values, quantiles []float64) (*Draws, error) {
	if len(values) != len(quantiles) {
		return nil, core.NewShapeError(fmt.Sprintf("%d values but %d quantiles", len(values), len(quantiles)))
	}
	for k, q := range quantiles {
		if math.IsNaN(q) || q < 0 || q > 1 {
			return nil, core.NewShapeError(fmt.Sprintf("quantile %d = %g outside [0, 1]", k, q))
		}
	}

	out := newDraws(len(values))
	err := s.opts.fanOut(ctx, rng, len(values), func(r *rand.Rand, lo, hi int) error {
		for k := lo; k < hi; k++ {
			idx, row := s.table.Draw(r)
			y, err := Predict(values[k], quantiles[k], row)
			if err != nil {
				return fmt.Errorf("sample %d: %w", k, err)
			}
			out.Values[k] = y
			out.Rows[k] = idx
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
