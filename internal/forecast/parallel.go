// Package forecast draws predictive samples from a hyperparameter posterior.
//
// Every sample draws its own posterior row, so hyperparameter uncertainty is
// marginalised rather than fixed at a point estimate. Work is split into
// fixed-size chunks that run concurrently; each chunk owns a generator seeded
// from the caller's generator before any goroutine starts, which keeps
// results identical for any worker count.
package forecast

import (
	"context"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultChunkSize is the number of samples one worker processes per task
	DefaultChunkSize = 256

	// DefaultMinGridSize is the smallest inverse grid accepted
	DefaultMinGridSize = 5
)

// Option configures a sampler
type Option func(*options)

type options struct {
	workers     int
	chunkSize   int
	minGridSize int
}

func defaultOptions() options {
	return options{
		workers:     runtime.NumCPU(),
		chunkSize:   DefaultChunkSize,
		minGridSize: DefaultMinGridSize,
	}
}

// WithWorkers bounds the number of concurrent chunks
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithChunkSize sets the samples per chunk. Changing it changes which seed
// each sample sees, so fixed-seed results are only stable for a fixed chunk size.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithMinGridSize sets the smallest inverse grid the sampler accepts
func WithMinGridSize(n int) Option {
	return func(o *options) {
		if n >= 2 {
			o.minGridSize = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// fanOut runs fn over [0, n) in chunks. fn receives a generator private to
// its chunk and must only write indices in [lo, hi).
func (o options) fanOut(ctx context.Context, rng *rand.Rand, n int, fn func(r *rand.Rand, lo, hi int) error) error {
	if n == 0 {
		return nil
	}

	chunks := (n + o.chunkSize - 1) / o.chunkSize
	seeds := make([][2]uint64, chunks)
	for i := range seeds {
		seeds[i] = [2]uint64{rng.Uint64(), rng.Uint64()}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for c := 0; c < chunks; c++ {
		lo := c * o.chunkSize
		hi := min(lo+o.chunkSize, n)
		seed := seeds[c]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(rand.New(rand.NewPCG(seed[0], seed[1])), lo, hi)
		})
	}
	return g.Wait()
}

// Draws holds one sample per input together with the posterior row used to
// produce it. Rows feeds Classify so labels match the numeric samples.
type Draws struct {
	Values []float64
	Rows   []int
}

func newDraws(n int) *Draws {
	return &Draws{
		Values: make([]float64, n),
		Rows:   make([]int, n),
	}
}

// UniformQuantiles draws n values from the open interval (0, 1)
func UniformQuantiles(r *rand.Rand, n int) []float64 {
	q := make([]float64, n)
	for i := range q {
		u := r.Float64()
		for u == 0 {
			u = r.Float64()
		}
		q[i] = u
	}
	return q
}
