package hyper

import (
	"math"

	"mrforecast/domain/core"
)

// DefaultPopulations is the number of populations of the published fit
const DefaultPopulations = 4

// Layout describes the column order of one posterior draw:
// [base_intercept, slope_0..slope_n-1, scatter_0..scatter_n-1, transition_0..transition_n-2]
type Layout struct {
	NPop int
}

// NewLayout creates a layout for nPop populations
func NewLayout(nPop int) (Layout, error) {
	if nPop < 1 {
		return Layout{}, core.NewConfigurationError("population count must be positive, got %d", nPop)
	}
	return Layout{NPop: nPop}, nil
}

// LayoutForColumns infers the population count from a table width
func LayoutForColumns(columns int) (Layout, error) {
	if columns < 3 || columns%3 != 0 {
		return Layout{}, core.NewConfigurationError("table width %d is not 3*n_pop", columns)
	}
	return NewLayout(columns / 3)
}

// Columns returns the expected row width
func (l Layout) Columns() int {
	return 1 + 2*l.NPop + (l.NPop - 1)
}

// Row is one posterior draw decomposed into its parts.
// The slices are shared with the owning Table and must not be modified.
type Row struct {
	BaseIntercept float64
	Slopes        []float64
	Scatters      []float64
	Transitions   []float64
}

// Split decomposes a raw draw. The returned slices alias raw.
func (l Layout) Split(raw []float64) (Row, error) {
	if len(raw) != l.Columns() {
		return Row{}, core.NewConfigurationError("row has %d columns, layout with n_pop=%d needs %d",
			len(raw), l.NPop, l.Columns())
	}
	n := l.NPop
	return Row{
		BaseIntercept: raw[0],
		Slopes:        raw[1 : 1+n : 1+n],
		Scatters:      raw[1+n : 1+2*n : 1+2*n],
		Transitions:   raw[1+2*n : len(raw) : len(raw)],
	}, nil
}

// NPop returns the number of populations of the row
func (r Row) NPop() int {
	return len(r.Slopes)
}

// Validate checks the structural invariants of a draw. Zero scatter is
// accepted and treated as a noiseless line downstream.
func (r Row) Validate() error {
	n := len(r.Slopes)
	if n == 0 {
		return core.NewConfigurationError("row has no populations")
	}
	if len(r.Scatters) != n || len(r.Transitions) != n-1 {
		return core.NewConfigurationError("inconsistent row: %d slopes, %d scatters, %d transitions",
			n, len(r.Scatters), len(r.Transitions))
	}
	if !isFinite(r.BaseIntercept) {
		return core.NewConfigurationError("base intercept is not finite")
	}
	for i, s := range r.Slopes {
		if !isFinite(s) {
			return core.NewConfigurationError("slope %d is not finite", i)
		}
	}
	for i, s := range r.Scatters {
		if !isFinite(s) || s < 0 {
			return core.NewConfigurationError("scatter %d must be finite and non-negative, got %g", i, s)
		}
	}
	for i, t := range r.Transitions {
		if !isFinite(t) {
			return core.NewConfigurationError("transition %d is not finite", i)
		}
		if i > 0 && t < r.Transitions[i-1] {
			return core.NewConfigurationError("transitions decrease at %d: %g < %g", i, t, r.Transitions[i-1])
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
