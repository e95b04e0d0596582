package piecewise

import (
	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
)

// Model is the per-draw segment model. It is cheap to build and never
// cached across samples since each sample uses its own draw.
type Model struct {
	Intercepts  []float64
	Slopes      []float64
	Scatters    []float64
	Transitions []float64
}

// Build derives continuity-constrained intercepts for a draw:
//
//	c[0] = base_intercept
//	c[i] = c[i-1] + t[i-1]*(slope[i-1]-slope[i])
//
// so that adjacent segments agree at every transition.
func Build(row hyper.Row) (*Model, error) {
	n := len(row.Slopes)
	if n == 0 || len(row.Scatters) != n || len(row.Transitions) != n-1 {
		return nil, core.NewConfigurationError("row has %d slopes, %d scatters, %d transitions",
			n, len(row.Scatters), len(row.Transitions))
	}

	c := make([]float64, n)
	c[0] = row.BaseIntercept
	for i := 1; i < n; i++ {
		c[i] = c[i-1] + row.Transitions[i-1]*(row.Slopes[i-1]-row.Slopes[i])
	}

	return &Model{
		Intercepts:  c,
		Slopes:      row.Slopes,
		Scatters:    row.Scatters,
		Transitions: row.Transitions,
	}, nil
}

// NPop returns the number of segments
func (m *Model) NPop() int {
	return len(m.Slopes)
}

// Boundaries returns the padded segment edges
func (m *Model) Boundaries() []float64 {
	return Boundaries(m.Transitions)
}

// Segment returns the segment containing x
func (m *Model) Segment(x float64) int {
	return SegmentIndex(x, m.Transitions)
}

// Mean is the linear relation of segment i at x
func (m *Model) Mean(i int, x float64) float64 {
	return m.Intercepts[i] + x*m.Slopes[i]
}

// Evaluate returns the segment, mean and scatter governing x
func (m *Model) Evaluate(x float64) (segment int, mu, sigma float64) {
	segment = m.Segment(x)
	return segment, m.Mean(segment, x), m.Scatters[segment]
}
