package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint identifies the contents of a hyperparameter table
type Fingerprint uint64

// NewFingerprint hashes the bit patterns of rows in order. Two tables with
// the same draws in the same order share a fingerprint.
func NewFingerprint(rows [][]float64) Fingerprint {
	d := xxhash.New()
	var buf [8]byte
	for _, row := range rows {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(row)))
		_, _ = d.Write(buf[:])
		for _, v := range row {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			_, _ = d.Write(buf[:])
		}
	}
	return Fingerprint(d.Sum64())
}

// String returns the fixed-width hex form
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// ParseFingerprint parses the hex form produced by String
func ParseFingerprint(s string) (Fingerprint, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	return Fingerprint(v), nil
}

// HashString returns the xxHash64 of s, used to derive named RNG streams
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}
