package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream for one forecast call
	// Identical (forecastID, operation, seed) triples produce identical draws
	Stream(ctx context.Context, forecastID, operation string, baseSeed uint64) (*rand.Rand, error)
}
