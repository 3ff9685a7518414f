package model

import (
	"fmt"
	"sort"

	"github.com/mesocosm/mesocosm/internal/schema"
)

// Factory constructs a fresh model instance for one run.
type Factory func() (Model, error)

// Definition bundles everything the core needs to know about an available
// model before constructing it: its descriptor, its configuration-schema
// fragment, and its factory.
type Definition struct {
	Descriptor Descriptor
	Fragment   schema.Fragment
	New        Factory
}

// Registry maps model names to definitions. It is populated by explicit
// Register calls at composition time and treated as immutable afterwards.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]Definition{}}
}

// Register installs a model definition. The name must be unique and the
// fragment section must match it.
func (r *Registry) Register(def Definition) error {
	if err := def.Descriptor.Validate(); err != nil {
		return err
	}
	name := def.Descriptor.Name
	if def.New == nil {
		return fmt.Errorf("model: factory is required for %s", name)
	}
	if def.Fragment.Section != name {
		return fmt.Errorf("model: %s fragment owns section %q, want %q",
			name, def.Fragment.Section, name)
	}
	if _, exists := r.defs[name]; exists {
		return fmt.Errorf("model: %s already registered", name)
	}
	r.defs[name] = def
	return nil
}

// MustRegister panics if registration fails; for the static builtin set.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get looks up a definition by model name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the sorted registered model names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for name := range r.defs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Fragments returns the schema fragments of every registered model, in
// name order.
func (r *Registry) Fragments() []schema.Fragment {
	names := r.Names()
	out := make([]schema.Fragment, 0, len(names))
	for _, name := range names {
		out = append(out, r.defs[name].Fragment)
	}
	return out
}
