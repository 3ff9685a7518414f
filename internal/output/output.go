// Package output persists run artifacts: JSON state snapshots, the
// per-step telemetry CSV, the end-of-run variable report, and the run
// manifest. Snapshot writes never touch in-memory state; a failed write
// surfaces as a PersistenceError and the caller decides whether it is
// fatal.
package output

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PersistenceError reports a failed write of a run artifact.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("output: write %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Float is a float64 that survives JSON: NaN marshals as null and null
// unmarshals as NaN, so layered arrays keep their unfilled rows.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%g", float64(f))), nil
}

func (f *Float) UnmarshalJSON(raw []byte) error {
	if string(raw) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("output: parse float %q: %w", raw, err)
	}
	*f = Float(v)
	return nil
}

// summarise returns the min, mean and max of the finite values; all three
// are NaN when nothing finite is present.
func summarise(values []float64) (min, mean, max float64) {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		nan := math.NaN()
		return nan, nan, nan
	}
	return floats.Min(finite), stat.Mean(finite, nil), floats.Max(finite)
}
