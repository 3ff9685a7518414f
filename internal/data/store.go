// Package data holds the shared in-memory state table: one flat float64
// array per created variable, shaped over the grid cells (layer-major for
// layered variables). Reads and writes carry the acting model's name and
// are checked against the variable catalogue; every successful write is
// recorded in a provenance entry.
package data

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/mesocosm/mesocosm/internal/layers"
	"github.com/mesocosm/mesocosm/internal/units"
	"github.com/mesocosm/mesocosm/internal/variables"
)

// DuplicateError reports a second Create for the same variable.
type DuplicateError struct {
	Variable string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("data: variable %q already created", e.Variable)
}

// WriteAuthError reports a write by a model outside the variable's producer
// set (first write) or updater set (subsequent writes).
type WriteAuthError struct {
	Model    string
	Variable string
	First    bool
	Allowed  []string
}

func (e *WriteAuthError) Error() string {
	phase := "update"
	if e.First {
		phase = "initialise"
	}
	return fmt.Sprintf("data: model %q is not authorised to %s %q (allowed: %s)",
		e.Model, phase, e.Variable, strings.Join(e.Allowed, ", "))
}

// ReadAuthError reports a read by a model outside the consumer set.
type ReadAuthError struct {
	Model    string
	Variable string
}

func (e *ReadAuthError) Error() string {
	return fmt.Sprintf("data: model %q is not authorised to read %q", e.Model, e.Variable)
}

// ShapeError reports a write whose length does not match the stored array.
type ShapeError struct {
	Variable string
	Want     int
	Got      int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("data: %q expects %d values, got %d", e.Variable, e.Want, e.Got)
}

// UninitialisedError reports a read before any write.
type UninitialisedError struct {
	Variable string
}

func (e *UninitialisedError) Error() string {
	return fmt.Sprintf("data: variable %q read before first write", e.Variable)
}

// Provenance records the last successful write of a variable.
type Provenance struct {
	LastWriter string
	LastStep   int
	Writes     int
}

type entry struct {
	values []float64
	prov   Provenance
}

// Store is the shared state table. It is not safe for concurrent use;
// models run one at a time by design and the authorisation checks are the
// only access discipline.
type Store struct {
	catalogue *variables.Catalogue
	cells     int
	stack     layers.Stack
	step      int
	arrays    map[string]*entry
}

// NewStore builds an empty store over the given grid cell count and
// vertical layer stack.
func NewStore(cat *variables.Catalogue, cells int, stack layers.Stack) (*Store, error) {
	if cat == nil {
		return nil, fmt.Errorf("data: variable catalogue is required")
	}
	if cells < 1 {
		return nil, fmt.Errorf("data: cell count must be at least 1, got %d", cells)
	}
	if stack.Total() < 1 {
		return nil, fmt.Errorf("data: layer stack is empty")
	}
	return &Store{
		catalogue: cat,
		cells:     cells,
		stack:     stack,
		arrays:    map[string]*entry{},
	}, nil
}

// Cells returns the grid cell count, the leading axis of every array.
func (s *Store) Cells() int {
	return s.cells
}

// Layers returns the vertical layer count of layered arrays.
func (s *Store) Layers() int {
	return s.stack.Total()
}

// Stack returns the vertical layer structure, so models can address layer
// roles in the flat layer-major arrays.
func (s *Store) Stack() layers.Stack {
	return s.stack
}

// Index returns the flat index of one cell in one layer of a layered
// array.
func (s *Store) Index(layer, cell int) int {
	return layer*s.cells + cell
}

// SetStep advances the step number stamped into write provenance. Step 0
// is initialisation.
func (s *Store) SetStep(step int) {
	s.step = step
}

// Len returns the expected array length of a catalogue variable.
func (s *Store) Len(name string) (int, error) {
	v, ok := s.catalogue.Get(name)
	if !ok {
		return 0, fmt.Errorf("data: unknown variable %q", name)
	}
	if v.Layered {
		return s.cells * s.stack.Total(), nil
	}
	return s.cells, nil
}

// Create allocates the NaN-filled array for a declared variable.
func (s *Store) Create(name string) error {
	if _, exists := s.arrays[name]; exists {
		return &DuplicateError{Variable: name}
	}
	length, err := s.Len(name)
	if err != nil {
		return err
	}
	values := make([]float64, length)
	for i := range values {
		values[i] = math.NaN()
	}
	s.arrays[name] = &entry{values: values}
	return nil
}

// Write stores values for a variable on behalf of a model. The unit names
// the unit the values are expressed in; any unit compatible with the
// variable's canonical unit is accepted and converted on ingest. The first
// write requires initialise authorisation, later writes update
// authorisation. The stored array is untouched when any check fails.
func (s *Store) Write(model, name string, values []float64, unit string) error {
	v, ok := s.catalogue.Get(name)
	if !ok {
		return fmt.Errorf("data: unknown variable %q", name)
	}
	e, created := s.arrays[name]
	if !created {
		return fmt.Errorf("data: variable %q not created for this run", name)
	}
	first := e.prov.Writes == 0
	if first && !v.CanInitialise(model) {
		return &WriteAuthError{Model: model, Variable: name, First: true, Allowed: v.InitialisedBy}
	}
	if !first && !v.CanUpdate(model) {
		return &WriteAuthError{Model: model, Variable: name, Allowed: v.UpdatedBy}
	}
	if len(values) != len(e.values) {
		return &ShapeError{Variable: name, Want: len(e.values), Got: len(values)}
	}
	if !v.Layered && floats.HasNaN(values) {
		return fmt.Errorf("data: write of %q by %q contains NaN", name, model)
	}
	stored := make([]float64, len(values))
	copy(stored, values)
	if err := units.ConvertSlice(stored, unit, v.Unit); err != nil {
		return fmt.Errorf("data: write of %q by %q: %w", name, model, err)
	}
	e.values = stored
	e.prov.LastWriter = model
	e.prov.LastStep = s.step
	e.prov.Writes++
	return nil
}

// Read returns a copy of a variable's values, in its canonical unit, on
// behalf of a consuming model.
func (s *Store) Read(model, name string) ([]float64, error) {
	v, ok := s.catalogue.Get(name)
	if !ok {
		return nil, fmt.Errorf("data: unknown variable %q", name)
	}
	if !v.CanRead(model) {
		return nil, &ReadAuthError{Model: model, Variable: name}
	}
	e, created := s.arrays[name]
	if !created || e.prov.Writes == 0 {
		return nil, &UninitialisedError{Variable: name}
	}
	out := make([]float64, len(e.values))
	copy(out, e.values)
	return out, nil
}

// Written reports whether a variable has received at least one write.
func (s *Store) Written(name string) bool {
	e, ok := s.arrays[name]
	return ok && e.prov.Writes > 0
}

// Provenance returns the write record of a created variable.
func (s *Store) Provenance(name string) (Provenance, bool) {
	e, ok := s.arrays[name]
	if !ok {
		return Provenance{}, false
	}
	return e.prov, true
}

// Names returns the sorted names of created variables.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.arrays))
	for name := range s.arrays {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Peek exposes a created variable to the core itself (snapshots, reports);
// it bypasses consumer authorisation and must not be handed to models.
func (s *Store) Peek(name string) (values []float64, v variables.Variable, prov Provenance, ok bool) {
	e, created := s.arrays[name]
	if !created {
		return nil, variables.Variable{}, Provenance{}, false
	}
	v, _ = s.catalogue.Get(name)
	values = make([]float64, len(e.values))
	copy(values, e.values)
	return values, v, e.prov, true
}
