package rng

import (
	"context"
	"math/rand/v2"

	"mrforecast/domain/core"
	"mrforecast/ports"
)

// SeededAdapter implements ports.RNGPort with PCG generators
type SeededAdapter struct{}

// NewSeededAdapter creates a seeded RNG adapter
func NewSeededAdapter() ports.RNGPort {
	return &SeededAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *SeededAdapter) SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewPCG(seed, core.HashString(name))), nil
}

// Stream creates a deterministic RNG stream for one forecast call
func (a *SeededAdapter) Stream(ctx context.Context, forecastID, operation string, baseSeed uint64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// mix the identifiers so distinct calls with one base seed do not collide
	seed := baseSeed
	if forecastID != "" {
		seed ^= core.HashString(forecastID)
	}
	return rand.New(rand.NewPCG(seed, core.HashString(operation))), nil
}
