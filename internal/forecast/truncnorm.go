package forecast

import (
	"fmt"
	"math"
	"math/rand/v2"

	"mrforecast/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

const maxTruncatedRetries = 64

// TruncatedNormal is a Normal(Mu, Sigma) restricted to (Lo, Hi]. Either
// bound may be infinite.
type TruncatedNormal struct {
	Mu    float64
	Sigma float64
	Lo    float64
	Hi    float64
}

// Validate checks the parameters and that the interval carries probability
func (t TruncatedNormal) Validate() error {
	if math.IsNaN(t.Mu) || math.IsInf(t.Mu, 0) {
		return fmt.Errorf("%w: mean must be finite, got %g", core.ErrInvalidArgument, t.Mu)
	}
	if !(t.Sigma > 0) || math.IsInf(t.Sigma, 0) {
		return fmt.Errorf("%w: standard deviation must be positive and finite, got %g", core.ErrInvalidArgument, t.Sigma)
	}
	if !(t.Hi > t.Lo) {
		return fmt.Errorf("%w: truncation interval (%g, %g] is empty", core.ErrInvalidArgument, t.Lo, t.Hi)
	}
	if pa, pb := t.tail(); pb <= pa {
		return fmt.Errorf("%w: truncation interval (%g, %g] carries no probability for N(%g, %g)",
			core.ErrInvalidArgument, t.Lo, t.Hi, t.Mu, t.Sigma)
	}
	return nil
}

// tail returns the standard-normal CDF at the bounds, mirrored into the
// lower tail when the interval lies above the mean so tiny probabilities
// keep their precision.
func (t TruncatedNormal) tail() (pa, pb float64) {
	a, b := t.standardBounds()
	return distuv.UnitNormal.CDF(a), distuv.UnitNormal.CDF(b)
}

func (t TruncatedNormal) standardBounds() (a, b float64) {
	a = (t.Lo - t.Mu) / t.Sigma
	b = (t.Hi - t.Mu) / t.Sigma
	if a > 0 {
		a, b = -b, -a
	}
	return a, b
}

func (t TruncatedNormal) mirrored() bool {
	return (t.Lo-t.Mu)/t.Sigma > 0
}

// Rand draws one value by inverting the CDF on the truncated interval
func (t TruncatedNormal) Rand(r *rand.Rand) (float64, error) {
	pa, pb := t.tail()
	flip := t.mirrored()
	for try := 0; try < maxTruncatedRetries; try++ {
		u := pa + r.Float64()*(pb-pa)
		z := distuv.UnitNormal.Quantile(u)
		if flip {
			z = -z
		}
		x := t.Mu + t.Sigma*z
		if x > t.Lo && x <= t.Hi {
			return x, nil
		}
	}
	return 0, fmt.Errorf("%w: could not draw inside (%g, %g]", core.ErrInvalidArgument, t.Lo, t.Hi)
}

// Sample draws n values
func (t TruncatedNormal) Sample(r *rand.Rand, n int) ([]float64, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		x, err := t.Rand(r)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}
