// Package variables holds the static catalogue of shared state variables.
// Each entry names the models authorised to initialise, update and read the
// variable; the literal producer "external" marks variables supplied from
// input data rather than computed by a model.
package variables

import (
	"fmt"
	"slices"
	"sort"

	"github.com/mesocosm/mesocosm/internal/units"
)

// External is the producer token for variables supplied from input data.
const External = "external"

// Variable describes one shared state variable.
type Variable struct {
	Name        string
	Unit        string
	Layered     bool
	Description string
	// Authorisation sets. InitialisedBy gates the first write, UpdatedBy
	// subsequent writes, UsedBy reads.
	InitialisedBy []string
	UpdatedBy     []string
	UsedBy        []string
}

// CanInitialise reports whether writer may perform the first write.
func (v Variable) CanInitialise(writer string) bool {
	return slices.Contains(v.InitialisedBy, writer)
}

// CanUpdate reports whether writer may overwrite after initialisation.
func (v Variable) CanUpdate(writer string) bool {
	return slices.Contains(v.UpdatedBy, writer)
}

// CanRead reports whether reader may consume the variable.
func (v Variable) CanRead(reader string) bool {
	return slices.Contains(v.UsedBy, reader)
}

// ExternallySupplied reports whether the variable comes from input data.
func (v Variable) ExternallySupplied() bool {
	return v.CanInitialise(External)
}

// Catalogue is an immutable, validated set of variables.
type Catalogue struct {
	entries map[string]Variable
	names   []string
}

// NewCatalogue validates the entries and builds the catalogue.
func NewCatalogue(vars ...Variable) (*Catalogue, error) {
	entries := make(map[string]Variable, len(vars))
	for _, v := range vars {
		if v.Name == "" {
			return nil, fmt.Errorf("variables: entry with empty name")
		}
		if _, dup := entries[v.Name]; dup {
			return nil, fmt.Errorf("variables: duplicate entry %q", v.Name)
		}
		if !units.Known(v.Unit) {
			return nil, fmt.Errorf("variables: %s declares unknown unit %q", v.Name, v.Unit)
		}
		if len(v.InitialisedBy) == 0 {
			return nil, fmt.Errorf("variables: %s has no initialiser", v.Name)
		}
		entries[v.Name] = v
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Catalogue{entries: entries, names: names}, nil
}

// Get looks up a variable by name.
func (c *Catalogue) Get(name string) (Variable, bool) {
	v, ok := c.entries[name]
	return v, ok
}

// Names returns the sorted variable names.
func (c *Catalogue) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of entries.
func (c *Catalogue) Len() int {
	return len(c.names)
}
