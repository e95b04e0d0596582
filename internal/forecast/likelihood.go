package forecast

import (
	"fmt"
	"math"

	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
	"mrforecast/domain/piecewise"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Likelihood evaluates p(observed | x) at every grid point for one draw and
// normalises the result into a probability mass function over the grid.
// The discretisation is what the categorical draw of the inverse sampler
// consumes; the values are not densities.
func Likelihood(observed float64, grid []float64, row hyper.Row) ([]float64, error) {
	if len(grid) == 0 {
		return nil, core.NewShapeError("empty grid")
	}
	m, err := piecewise.Build(row)
	if err != nil {
		return nil, err
	}
	p := make([]float64, len(grid))
	if err := fillLikelihood(p, observed, grid, m); err != nil {
		return nil, err
	}
	return p, nil
}

// fillLikelihood writes the normalised likelihood into p, which must have
// the grid's length.
func fillLikelihood(p []float64, observed float64, grid []float64, m *piecewise.Model) error {
	pointMass := false
	for j, x := range grid {
		_, mu, sigma := m.Evaluate(x)
		switch {
		case sigma == 0 && mu == observed:
			// an exact hit on a noiseless segment outweighs any finite density
			if !pointMass {
				pointMass = true
				clear(p[:j])
			}
			p[j] = 1
		case pointMass || sigma == 0:
			p[j] = 0
		default:
			p[j] = distuv.Normal{Mu: mu, Sigma: sigma}.Prob(observed)
		}
	}

	sum := floats.Sum(p)
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return fmt.Errorf("%w: observed %g", core.ErrDegenerateLikelihood, observed)
	}
	for j := range p {
		p[j] /= sum
	}
	return nil
}
