package hyper

import (
	"fmt"
	"math/rand/v2"

	"mrforecast/domain/core"
)

// Table is the immutable posterior of hyperparameter draws. It is built once
// and then shared read-only by every sampler; concurrent readers need no
// synchronization.
type Table struct {
	layout      Layout
	raw         []float64
	rows        []Row
	fingerprint core.Fingerprint
}

// NewTable copies raw draws into a table after validating every row
func NewTable(layout Layout, raw [][]float64) (*Table, error) {
	if len(raw) == 0 {
		return nil, core.ErrEmptyTable
	}
	if layout.NPop < 1 {
		return nil, core.NewConfigurationError("layout has no populations")
	}

	width := layout.Columns()
	flat := make([]float64, 0, len(raw)*width)
	rows := make([]Row, len(raw))
	for i, r := range raw {
		if len(r) != width {
			return nil, fmt.Errorf("draw %d: %w", i, core.NewConfigurationError(
				"row has %d columns, want %d", len(r), width))
		}
		start := len(flat)
		flat = append(flat, r...)
		row, err := layout.Split(flat[start : start+width : start+width])
		if err != nil {
			return nil, fmt.Errorf("draw %d: %w", i, err)
		}
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("draw %d: %w", i, err)
		}
		rows[i] = row
	}

	return &Table{
		layout:      layout,
		raw:         flat,
		rows:        rows,
		fingerprint: core.NewFingerprint(raw),
	}, nil
}

// Len returns the number of draws
func (t *Table) Len() int {
	return len(t.rows)
}

// Layout returns the column layout
func (t *Table) Layout() Layout {
	return t.layout
}

// NPop returns the number of populations
func (t *Table) NPop() int {
	return t.layout.NPop
}

// Fingerprint identifies the table contents
func (t *Table) Fingerprint() core.Fingerprint {
	return t.fingerprint
}

// Row returns draw i. It panics if i is out of range, like slice indexing.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Raw returns a copy of draw i in column order
func (t *Table) Raw(i int) []float64 {
	w := t.layout.Columns()
	out := make([]float64, w)
	copy(out, t.raw[i*w:(i+1)*w])
	return out
}

// Draw picks one row uniformly at random
func (t *Table) Draw(r *rand.Rand) (int, Row) {
	i := r.IntN(len(t.rows))
	return i, t.rows[i]
}
