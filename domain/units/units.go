// Package units converts masses and radii between the supported unit systems.
// The model's native system is Earth masses and Earth radii.
package units

import (
	"fmt"
	"strings"

	"mrforecast/domain/core"

	"gonum.org/v1/gonum/floats"
)

// Unit names a unit system for both mass and radius
type Unit string

const (
	Earth   Unit = "earth"
	Jupiter Unit = "jupiter"
	Sun     Unit = "sun"

	// Native is the unit system the model is fitted in
	Native = Earth
)

// Conversion constants, Earth units per unit
const (
	EarthMassesPerJupiter = 317.828
	EarthMassesPerSun     = 333060.4
	EarthRadiiPerJupiter  = 11.21
	EarthRadiiPerSun      = 109.2
)

type factors struct {
	mass   float64
	radius float64
}

var table = map[Unit]factors{
	Earth:   {1, 1},
	Jupiter: {EarthMassesPerJupiter, EarthRadiiPerJupiter},
	Sun:     {EarthMassesPerSun, EarthRadiiPerSun},
}

// Supported lists the recognised units
func Supported() []Unit {
	return []Unit{Earth, Jupiter, Sun}
}

// Parse resolves a unit name. The empty string and "native" mean Earth units.
func Parse(s string) (Unit, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "", "native":
		return Native, nil
	}
	u := Unit(name)
	if _, ok := table[u]; !ok {
		return "", fmt.Errorf("%w: %q (want one of earth, jupiter, sun)", core.ErrInvalidUnit, s)
	}
	return u, nil
}

// String returns the unit name
func (u Unit) String() string {
	return string(u)
}

// MassToNative converts masses in u to Earth masses in place
func (u Unit) MassToNative(values []float64) {
	scale(values, table[u].mass)
}

// MassFromNative converts Earth masses to u in place
func (u Unit) MassFromNative(values []float64) {
	scale(values, 1/table[u].mass)
}

// RadiusToNative converts radii in u to Earth radii in place
func (u Unit) RadiusToNative(values []float64) {
	scale(values, table[u].radius)
}

// RadiusFromNative converts Earth radii to u in place
func (u Unit) RadiusFromNative(values []float64) {
	scale(values, 1/table[u].radius)
}

// MassFactor returns Earth masses per unit mass
func (u Unit) MassFactor() float64 {
	return table[u].mass
}

// RadiusFactor returns Earth radii per unit radius
func (u Unit) RadiusFactor() float64 {
	return table[u].radius
}

func scale(values []float64, f float64) {
	if f == 1 {
		return
	}
	floats.Scale(f, values)
}
