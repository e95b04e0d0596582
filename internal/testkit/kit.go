package testkit

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"

	"mrforecast/adapters/rng"
	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
	"mrforecast/ports"
)

// Published four-population posterior means (log10 Earth units)
var (
	PublishedIntercept   = 0.00346
	PublishedSlopes      = []float64{0.2790, 0.589, -0.044, 0.881}
	PublishedScatters    = []float64{0.0403, 0.146, 0.0737, 0.0353}
	PublishedTransitions = []float64{math.Log10(2.04), math.Log10(131.6), math.Log10(26600)}
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	seed uint64
}

// NewTestKit creates a new test kit with a fixed seed
func NewTestKit() *TestKit {
	return &TestKit{seed: 42}
}

// RNGAdapter returns a seeded RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return rng.NewSeededAdapter()
}

// Rand returns a fresh generator; the same name always gives the same stream
func (t *TestKit) Rand(name string) *rand.Rand {
	return rand.New(rand.NewPCG(t.seed, core.HashString(name)))
}

// PublishedRow returns the posterior-mean draw in column order
func PublishedRow() []float64 {
	row := []float64{PublishedIntercept}
	row = append(row, PublishedSlopes...)
	row = append(row, PublishedScatters...)
	return append(row, PublishedTransitions...)
}

// PosteriorRaw generates n draws scattered around the published values.
// jitter scales the spread of every parameter.
func (t *TestKit) PosteriorRaw(n int, jitter float64) [][]float64 {
	r := t.Rand("posterior")
	base := PublishedRow()
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, len(base))
		for j, v := range base {
			row[j] = v + jitter*0.05*r.NormFloat64()
		}
		for j := 5; j < 9; j++ {
			row[j] = math.Abs(row[j]) + 1e-3
		}
		sort.Float64s(row[9:])
		out[i] = row
	}
	return out
}

// PosteriorTable builds a four-population table of n jittered draws
func (t *TestKit) PosteriorTable(n int) (*hyper.Table, error) {
	return hyper.NewTable(hyper.Layout{NPop: hyper.DefaultPopulations}, t.PosteriorRaw(n, 1))
}

// PointTable builds a one-row table at the published posterior means
func (t *TestKit) PointTable() (*hyper.Table, error) {
	return hyper.NewTable(hyper.Layout{NPop: hyper.DefaultPopulations}, [][]float64{PublishedRow()})
}

// LineTable builds a single-population table y = intercept + slope*x with
// the given scatter
func (t *TestKit) LineTable(intercept, slope, scatter float64) (*hyper.Table, error) {
	return hyper.NewTable(hyper.Layout{NPop: 1}, [][]float64{{intercept, slope, scatter}})
}

// StaticSource implements ports.HyperparameterSource with a prebuilt table
type StaticSource struct {
	Table *hyper.Table
	Err   error
	Loads int
}

// Load returns the configured table or error
func (s *StaticSource) Load(ctx context.Context, layout hyper.Layout) (*hyper.Table, error) {
	s.Loads++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Table.NPop() != layout.NPop {
		return nil, core.NewConfigurationError("table has %d populations, want %d", s.Table.NPop(), layout.NPop)
	}
	return s.Table, nil
}
