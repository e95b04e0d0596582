package forecast

import (
	"fmt"

	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
	"mrforecast/domain/piecewise"
)

// Population is the segment index a sample falls in
type Population int

var fourPopulationNames = []string{"Terran", "Neptunian", "Jovian", "Stellar"}

// Name returns the label of population p in an nPop model
func (p Population) Name(nPop int) string {
	if nPop == len(fourPopulationNames) && int(p) >= 0 && int(p) < nPop {
		return fourPopulationNames[p]
	}
	return fmt.Sprintf("population-%d", int(p))
}

// Classification labels each sample with its population. It is diagnostic
// output and never feeds back into sampling.
type Classification struct {
	Populations []string     `json:"populations"`
	Labels      []Population `json:"labels"`
	Counts      []int        `json:"counts"`
	Fractions   []float64    `json:"fractions"`
}

// Classify assigns values[k] (log independent variable) to a population using
// the transitions of table row rows[k]. Pass the rows returned by the sampler
// so labels agree with the numeric samples.
func Classify(table *hyper.Table, values []float64, rows []int) (*Classification, error) {
	if len(values) != len(rows) {
		return nil, core.NewShapeError(fmt.Sprintf("%d values but %d rows", len(values), len(rows)))
	}

	nPop := table.NPop()
	c := &Classification{
		Populations: make([]string, nPop),
		Labels:      make([]Population, len(values)),
		Counts:      make([]int, nPop),
		Fractions:   make([]float64, nPop),
	}
	for i := range c.Populations {
		c.Populations[i] = Population(i).Name(nPop)
	}

	for k, x := range values {
		if rows[k] < 0 || rows[k] >= table.Len() {
			return nil, fmt.Errorf("%w: sample %d references row %d of %d", core.ErrInvalidArgument, k, rows[k], table.Len())
		}
		p := Population(piecewise.SegmentIndex(x, table.Row(rows[k]).Transitions))
		c.Labels[k] = p
		c.Counts[p]++
	}

	if len(values) > 0 {
		for i, n := range c.Counts {
			c.Fractions[i] = float64(n) / float64(len(values))
		}
	}
	return c, nil
}

// Label returns the population name of sample k
func (c *Classification) Label(k int) string {
	return c.Populations[c.Labels[k]]
}

// Dominant returns the most frequent population
func (c *Classification) Dominant() string {
	best := 0
	for i, n := range c.Counts {
		if n > c.Counts[best] {
			best = i
		}
	}
	return c.Populations[best]
}
