package forecast

import (
	"fmt"
	"math"
	"strings"

	"mrforecast/domain/core"

	"gonum.org/v1/gonum/floats"
)

// GridPolicy decides what happens when a requested grid is below the minimum
type GridPolicy string

const (
	// GridClamp raises the size to the minimum and reports the adjustment
	GridClamp GridPolicy = "clamp"
	// GridReject fails the call with core.ErrGridTooSparse
	GridReject GridPolicy = "reject"
)

// ParseGridPolicy resolves a policy name
func ParseGridPolicy(s string) (GridPolicy, error) {
	switch p := GridPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case GridClamp, GridReject:
		return p, nil
	case "":
		return GridClamp, nil
	default:
		return "", fmt.Errorf("%w: unknown grid policy %q", core.ErrInvalidArgument, s)
	}
}

// Default log10 mass range of the inverse grid, in Earth masses
const (
	DefaultGridLogMin = -4.0
	DefaultGridLogMax = 5.5
)

// GridSpec describes an evenly spaced inverse grid
type GridSpec struct {
	LogMin  float64
	LogMax  float64
	Size    int
	MinSize int
	Policy  GridPolicy
}

// NewGrid builds the grid, applying the policy when Size < MinSize.
// adjusted reports that the size was clamped.
func NewGrid(spec GridSpec) (grid []float64, adjusted bool, err error) {
	if math.IsInf(spec.LogMin, 0) || math.IsInf(spec.LogMax, 0) || !(spec.LogMax > spec.LogMin) {
		return nil, false, fmt.Errorf("%w: grid range [%g, %g]", core.ErrInvalidArgument, spec.LogMin, spec.LogMax)
	}
	minSize := max(spec.MinSize, 2)

	size := spec.Size
	if size < minSize {
		if spec.Policy == GridReject {
			return nil, false, fmt.Errorf("%w: %d points requested, minimum %d", core.ErrGridTooSparse, size, minSize)
		}
		size = minSize
		adjusted = true
	}

	return floats.Span(make([]float64, size), spec.LogMin, spec.LogMax), adjusted, nil
}
