// Package piecewise implements the continuous broken-line relation between
// the log independent and log dependent variable of one posterior draw.
package piecewise

import (
	"math"
	"sort"
)

// Boundaries pads transitions with -Inf and +Inf, giving n_pop+1 edges
// of the half-open intervals [b[i], b[i+1]).
func Boundaries(transitions []float64) []float64 {
	b := make([]float64, 0, len(transitions)+2)
	b = append(b, math.Inf(-1))
	b = append(b, transitions...)
	return append(b, math.Inf(1))
}

// SegmentIndex returns the segment i with b[i] <= x < b[i+1]. A value equal
// to a transition belongs to the higher segment. Transitions must be sorted.
// NaN is assigned to the last segment.
func SegmentIndex(x float64, transitions []float64) int {
	// number of transitions t with t <= x
	return sort.Search(len(transitions), func(j int) bool {
		return transitions[j] > x
	})
}

// SegmentIndices is the vectorised form of SegmentIndex
func SegmentIndices(xs, transitions []float64) []int {
	out := make([]int, len(xs))
	for k, x := range xs {
		out[k] = SegmentIndex(x, transitions)
	}
	return out
}

// Masks returns one membership mask per segment; exactly one mask is true
// at every position.
func Masks(xs, transitions []float64) [][]bool {
	masks := make([][]bool, len(transitions)+1)
	for i := range masks {
		masks[i] = make([]bool, len(xs))
	}
	for k, x := range xs {
		masks[SegmentIndex(x, transitions)][k] = true
	}
	return masks
}
