// Package timing computes the simulation calendar: start date, update
// interval and run length resolve to a step count and per-step timestamps.
// The calendar uses whole-week months and years (4 and 52 weeks) so that
// week-aligned intervals tile year-aligned run lengths without remainder.
package timing

import (
	"fmt"
	"math"
	"time"

	"github.com/mesocosm/mesocosm/internal/units"
)

// Clock is the resolved calendar of a run. The zero value is unusable;
// build one with New.
type Clock struct {
	start    time.Time
	interval units.Quantity
	length   units.Quantity
	stepSec  float64
	steps    int
}

// New validates the calendar settings and derives the step count as
// floor(run length / update interval).
func New(start time.Time, interval, length units.Quantity) (Clock, error) {
	if start.IsZero() {
		return Clock{}, fmt.Errorf("timing: start date is required")
	}
	intervalSec, err := interval.Seconds()
	if err != nil {
		return Clock{}, fmt.Errorf("timing: update interval: %w", err)
	}
	if intervalSec <= 0 {
		return Clock{}, fmt.Errorf("timing: update interval %s must be positive", interval)
	}
	lengthSec, err := length.Seconds()
	if err != nil {
		return Clock{}, fmt.Errorf("timing: run length: %w", err)
	}
	if lengthSec < intervalSec {
		return Clock{}, fmt.Errorf("timing: run length %s is shorter than one update interval %s",
			length, interval)
	}
	// Tolerate float noise from unit conversion when the length is an
	// exact multiple of the interval.
	steps := int(math.Floor(lengthSec/intervalSec + 1e-9))
	return Clock{
		start:    start,
		interval: interval,
		length:   length,
		stepSec:  intervalSec,
		steps:    steps,
	}, nil
}

// Start returns the timestamp of step 0.
func (c Clock) Start() time.Time {
	return c.start
}

// Interval returns the update interval.
func (c Clock) Interval() units.Quantity {
	return c.interval
}

// Steps returns the number of update steps in the run.
func (c Clock) Steps() int {
	return c.steps
}

// TimeAt returns the timestamp the Nth step advances the simulation to.
// Step 0 is the start date.
func (c Clock) TimeAt(step int) time.Time {
	return c.start.Add(time.Duration(float64(step) * c.stepSec * float64(time.Second)))
}

// End returns the timestamp of the final step.
func (c Clock) End() time.Time {
	return c.TimeAt(c.steps)
}

func (c Clock) String() string {
	return fmt.Sprintf("%s + %d x %s", c.start.Format("2006-01-02"), c.steps, c.interval)
}
