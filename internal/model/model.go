// Package model defines the contract between the orchestration core and the
// pluggable process models: identity metadata, the initialise/update
// operation pair, and the registry the composition root installs models
// into. Any type implementing Model qualifies; there is no shared base
// state beyond the optional identity helper in Base.
package model

import (
	"fmt"
	"time"

	"github.com/mesocosm/mesocosm/internal/config"
	"github.com/mesocosm/mesocosm/internal/data"
	"github.com/mesocosm/mesocosm/internal/units"
)

// Descriptor is a model's identity metadata: its unique name, the
// variables it needs, the models it declares it must run after in each
// phase, and the update intervals it can meaningfully run at.
type Descriptor struct {
	Name        string
	Description string
	// Required variables must be readable before the model updates;
	// Optional ones are used when present.
	Required []string
	Optional []string
	// DependsInit and DependsUpdate name models that must run first in the
	// corresponding phase, over and above the edges derived from the
	// variable catalogue.
	DependsInit   []string
	DependsUpdate []string
	// MinInterval and MaxInterval bound the update interval; zero values
	// leave the bound open.
	MinInterval units.Quantity
	MaxInterval units.Quantity
}

// Validate ensures the descriptor is well-formed.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("model: name is required")
	}
	for _, dep := range d.DependsInit {
		if dep == d.Name {
			return fmt.Errorf("model: %s declares an init dependency on itself", d.Name)
		}
	}
	for _, dep := range d.DependsUpdate {
		if dep == d.Name {
			return fmt.Errorf("model: %s declares an update dependency on itself", d.Name)
		}
	}
	if !d.MinInterval.IsZero() {
		if dim, err := d.MinInterval.Dim(); err != nil || dim != units.DimTime {
			return fmt.Errorf("model: %s min interval %s is not a time", d.Name, d.MinInterval)
		}
	}
	if !d.MaxInterval.IsZero() {
		if dim, err := d.MaxInterval.Dim(); err != nil || dim != units.DimTime {
			return fmt.Errorf("model: %s max interval %s is not a time", d.Name, d.MaxInterval)
		}
	}
	return nil
}

// Depends returns the declared dependency list for a phase.
func (d Descriptor) Depends(phase Phase) []string {
	if phase == PhaseInit {
		return d.DependsInit
	}
	return d.DependsUpdate
}

// Phase is an execution stage with its own dependency graph.
type Phase string

const (
	PhaseInit   Phase = "init"
	PhaseUpdate Phase = "update"
)

// Model is implemented by every process model. Initialise runs once with
// the model's validated configuration section; Update runs once per step
// with the simulation time the step advances to. Both may read and write
// the store subject to the catalogue's authorisation sets.
type Model interface {
	Describe() Descriptor
	Initialise(section config.Section, store *data.Store) error
	Update(store *data.Store, now time.Time) error
}

// Closer is an optional capability: models holding resources implement it
// and are closed during finalisation, in reverse init order.
type Closer interface {
	Close() error
}
