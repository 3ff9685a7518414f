// Package units provides the quantity type and the unit-conversion table for
// the physical units the simulation actually uses: time, temperature,
// pressure, length (water depths included), areal carbon mass, fractions and
// irradiance. Conversions are affine (scale plus offset) so temperature
// works; anything richer belongs to a real dimensional-analysis library and
// is out of scope here.
package units

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Dim tags a unit with its physical dimension. Two units convert only when
// their dims match.
type Dim string

const (
	DimTime        Dim = "time"
	DimTemperature Dim = "temperature"
	DimPressure    Dim = "pressure"
	DimLength      Dim = "length"
	DimArealMass   Dim = "areal_mass"
	DimFraction    Dim = "fraction"
	DimIrradiance  Dim = "irradiance"
)

// entry converts a magnitude to the canonical unit of its dimension via
// canonical = magnitude*scale + offset.
type entry struct {
	dim    Dim
	scale  float64
	offset float64
}

// Calendar months and years are whole weeks (4 and 52) so that week-aligned
// update intervals tile year-aligned run lengths without remainder.
const (
	secondsPerDay   = 86400.0
	secondsPerWeek  = 7 * secondsPerDay
	secondsPerMonth = 4 * secondsPerWeek
	secondsPerYear  = 52 * secondsPerWeek
)

var table = map[string]entry{
	// time, canonical seconds
	"second":  {DimTime, 1, 0},
	"seconds": {DimTime, 1, 0},
	"minute":  {DimTime, 60, 0},
	"minutes": {DimTime, 60, 0},
	"hour":    {DimTime, 3600, 0},
	"hours":   {DimTime, 3600, 0},
	"day":     {DimTime, secondsPerDay, 0},
	"days":    {DimTime, secondsPerDay, 0},
	"week":    {DimTime, secondsPerWeek, 0},
	"weeks":   {DimTime, secondsPerWeek, 0},
	"month":   {DimTime, secondsPerMonth, 0},
	"months":  {DimTime, secondsPerMonth, 0},
	"year":    {DimTime, secondsPerYear, 0},
	"years":   {DimTime, secondsPerYear, 0},

	// temperature, canonical degrees Celsius
	"C": {DimTemperature, 1, 0},
	"K": {DimTemperature, 1, -273.15},

	// pressure, canonical kPa
	"kPa": {DimPressure, 1, 0},
	"hPa": {DimPressure, 0.1, 0},
	"Pa":  {DimPressure, 0.001, 0},

	// length and water depth, canonical metres
	"m":  {DimLength, 1, 0},
	"mm": {DimLength, 0.001, 0},
	"cm": {DimLength, 0.01, 0},
	"km": {DimLength, 1000, 0},

	// areal carbon mass, canonical kg m-2
	"kg C m-2": {DimArealMass, 1, 0},
	"g C m-2":  {DimArealMass, 0.001, 0},
	"kg m-2":   {DimArealMass, 1, 0},
	"g m-2":    {DimArealMass, 0.001, 0},

	// dimensionless ratios and mole fractions, canonical 1
	"":      {DimFraction, 1, 0},
	"1":     {DimFraction, 1, 0},
	"%":     {DimFraction, 0.01, 0},
	"ppm":   {DimFraction, 1e-6, 0},
	"m m-1": {DimFraction, 1, 0},

	// irradiance, canonical W m-2
	"W m-2": {DimIrradiance, 1, 0},
}

// DimensionalityError reports a conversion between incompatible dimensions.
type DimensionalityError struct {
	From string
	To   string
}

func (e *DimensionalityError) Error() string {
	return fmt.Sprintf("units: cannot convert %q to %q: incompatible dimensions", e.From, e.To)
}

// Known reports whether the table has an entry for unit.
func Known(unit string) bool {
	_, ok := table[unit]
	return ok
}

// DimensionOf returns the dimension of a known unit.
func DimensionOf(unit string) (Dim, bool) {
	e, ok := table[unit]
	if !ok {
		return "", false
	}
	return e.dim, true
}

// Quantity is a magnitude paired with a unit name from the table, the core's
// stand-in for a dimensional-analysis library value.
type Quantity struct {
	Magnitude float64
	Unit      string
}

// Parse reads quantity strings of the form "<number> <unit>", the format
// configuration files use ("2 weeks", "30 minutes", "101.3 kPa").
func Parse(s string) (Quantity, error) {
	trimmed := strings.TrimSpace(s)
	parts := strings.SplitN(trimmed, " ", 2)
	if len(parts) != 2 {
		return Quantity{}, fmt.Errorf("units: cannot parse quantity %q: want \"<number> <unit>\"", s)
	}
	mag, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("units: cannot parse quantity %q: %w", s, err)
	}
	unit := strings.TrimSpace(parts[1])
	if !Known(unit) {
		return Quantity{}, fmt.Errorf("units: unknown unit %q", unit)
	}
	return Quantity{Magnitude: mag, Unit: unit}, nil
}

// MustParse is Parse for statically known strings.
func MustParse(s string) Quantity {
	q, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return q
}

// IsZero reports whether the quantity was never set.
func (q Quantity) IsZero() bool {
	return q.Unit == "" && q.Magnitude == 0
}

// Dim returns the quantity's dimension.
func (q Quantity) Dim() (Dim, error) {
	e, ok := table[q.Unit]
	if !ok {
		return "", fmt.Errorf("units: unknown unit %q", q.Unit)
	}
	return e.dim, nil
}

// Convert expresses the quantity in another unit of the same dimension.
func (q Quantity) Convert(to string) (Quantity, error) {
	src, ok := table[q.Unit]
	if !ok {
		return Quantity{}, fmt.Errorf("units: unknown unit %q", q.Unit)
	}
	dst, ok := table[to]
	if !ok {
		return Quantity{}, fmt.Errorf("units: unknown unit %q", to)
	}
	if src.dim != dst.dim {
		return Quantity{}, &DimensionalityError{From: q.Unit, To: to}
	}
	canonical := q.Magnitude*src.scale + src.offset
	return Quantity{Magnitude: (canonical - dst.offset) / dst.scale, Unit: to}, nil
}

// Seconds converts a time quantity to seconds.
func (q Quantity) Seconds() (float64, error) {
	converted, err := q.Convert("seconds")
	if err != nil {
		return 0, err
	}
	return converted.Magnitude, nil
}

// Duration converts a time quantity to a time.Duration. Intended for update
// intervals; run lengths are kept in seconds to avoid overflowing Duration.
func (q Quantity) Duration() (time.Duration, error) {
	sec, err := q.Seconds()
	if err != nil {
		return 0, err
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.Magnitude, q.Unit)
}

// UnmarshalYAML accepts quantity strings in config documents.
func (q *Quantity) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("units: quantity must be a string: %w", err)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// MarshalYAML renders the quantity back to its config string form.
func (q Quantity) MarshalYAML() (any, error) {
	return q.String(), nil
}

// Compare orders two quantities of the same dimension: -1, 0 or 1.
func Compare(a, b Quantity) (int, error) {
	converted, err := b.Convert(a.Unit)
	if err != nil {
		return 0, err
	}
	switch {
	case a.Magnitude < converted.Magnitude:
		return -1, nil
	case a.Magnitude > converted.Magnitude:
		return 1, nil
	default:
		return 0, nil
	}
}

// ConvertSlice rewrites values in place from one unit to another. A no-op
// when the units match.
func ConvertSlice(values []float64, from, to string) error {
	if from == to {
		return nil
	}
	src, ok := table[from]
	if !ok {
		return fmt.Errorf("units: unknown unit %q", from)
	}
	dst, ok := table[to]
	if !ok {
		return fmt.Errorf("units: unknown unit %q", to)
	}
	if src.dim != dst.dim {
		return &DimensionalityError{From: from, To: to}
	}
	for i, v := range values {
		canonical := v*src.scale + src.offset
		values[i] = (canonical - dst.offset) / dst.scale
	}
	return nil
}
