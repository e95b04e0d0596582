package forecast

import (
	"math"

	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
	"mrforecast/domain/piecewise"
)

// DefaultFittedSigmas widens the fitted band on each side. Observations
// further out than this leave almost no likelihood anywhere on the grid.
const DefaultFittedSigmas = 10

// FittedRange returns the log10 band of the dependent variable the table can
// explain over independent values in [logMin, logMax]: the union over draws
// and segments of mean +/- sigmas*scatter. Within a segment the band edges
// are linear, so only the clipped segment ends need evaluating.
func FittedRange(table *hyper.Table, logMin, logMax, sigmas float64) (lo, hi float64, err error) {
	if table == nil || table.Len() == 0 {
		return 0, 0, core.ErrEmptyTable
	}
	if !(logMax > logMin) || math.IsInf(logMin, 0) || math.IsInf(logMax, 0) {
		return 0, 0, core.NewConfigurationError("fitted range over [%g, %g]", logMin, logMax)
	}

	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i < table.Len(); i++ {
		m, err := piecewise.Build(table.Row(i))
		if err != nil {
			return 0, 0, err
		}
		b := m.Boundaries()
		for seg := 0; seg < m.NPop(); seg++ {
			a, z := math.Max(b[seg], logMin), math.Min(b[seg+1], logMax)
			if a > z {
				continue
			}
			spread := sigmas * m.Scatters[seg]
			for _, x := range [2]float64{a, z} {
				mu := m.Mean(seg, x)
				lo = math.Min(lo, mu-spread)
				hi = math.Max(hi, mu+spread)
			}
		}
	}
	return lo, hi, nil
}
