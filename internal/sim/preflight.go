package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mesocosm/mesocosm/internal/config"
	"github.com/mesocosm/mesocosm/internal/model"
	"github.com/mesocosm/mesocosm/internal/resolver"
	"github.com/mesocosm/mesocosm/internal/timing"
	"github.com/mesocosm/mesocosm/internal/units"
	"github.com/mesocosm/mesocosm/internal/variables"
)

// preflight cross-checks the validated configuration against the registry
// and the variable catalogue before any model is constructed. It returns
// the active descriptors in configuration order. Dangling declared
// dependencies surface as typed resolver errors; everything else
// aggregates into a single config.ValidationError.
func (c *Controller) preflight(clock timing.Clock, cells int) ([]model.Descriptor, error) {
	var violations []config.Violation
	modules := c.cfg.Modules()
	active := make(map[string]bool, len(modules))
	descriptors := make([]model.Descriptor, 0, len(modules))
	for _, name := range modules {
		if active[name] {
			violations = append(violations, config.Violation{
				Path:    "core.modules",
				Message: fmt.Sprintf("model %q listed more than once", name),
			})
			continue
		}
		def, ok := c.registry.Get(name)
		if !ok {
			violations = append(violations, config.Violation{
				Path:    "core.modules",
				Message: fmt.Sprintf("model %q is not registered", name),
			})
			continue
		}
		active[name] = true
		descriptors = append(descriptors, def.Descriptor)
	}

	for _, d := range descriptors {
		for _, phase := range []model.Phase{model.PhaseInit, model.PhaseUpdate} {
			for _, dep := range d.Depends(phase) {
				if !active[dep] {
					return nil, &resolver.UnregisteredDependencyError{
						Model: d.Name, Dependency: dep, Phase: phase,
					}
				}
			}
		}
	}

	violations = append(violations, c.checkProducers(active)...)
	violations = append(violations, c.checkIntervals(clock, descriptors)...)
	violations = append(violations, c.checkData(active, cells)...)
	for _, name := range c.externallyRequired(active) {
		violations = append(violations, config.Violation{
			Path:    "data",
			Message: fmt.Sprintf("external variable %q required by an active model has no data entry", name),
		})
	}

	if len(violations) > 0 {
		sort.Slice(violations, func(i, j int) bool {
			if violations[i].Path != violations[j].Path {
				return violations[i].Path < violations[j].Path
			}
			return violations[i].Message < violations[j].Message
		})
		return nil, &config.ValidationError{Violations: violations}
	}
	return descriptors, nil
}

// checkProducers enforces exactly one active producer per variable and
// phase, and an available producer for every variable an active model
// requires.
func (c *Controller) checkProducers(active map[string]bool) []config.Violation {
	var out []config.Violation
	for _, name := range c.catalogue.Names() {
		v, _ := c.catalogue.Get(name)
		for phase, source := range map[string][]string{
			"initialised": v.InitialisedBy,
			"updated":     v.UpdatedBy,
		} {
			producers := activeOf(source, active)
			if len(producers) > 1 {
				out = append(out, config.Violation{
					Path: "variables." + name,
					Message: fmt.Sprintf("%s by more than one active model: %s",
						phase, strings.Join(producers, ", ")),
				})
			}
		}
	}
	for activeName := range active {
		def, ok := c.registry.Get(activeName)
		if !ok {
			continue
		}
		for _, required := range def.Descriptor.Required {
			v, ok := c.catalogue.Get(required)
			if !ok {
				out = append(out, config.Violation{
					Path:    activeName,
					Message: fmt.Sprintf("requires unknown variable %q", required),
				})
				continue
			}
			if v.ExternallySupplied() {
				continue
			}
			if len(activeOf(v.InitialisedBy, active)) == 0 {
				out = append(out, config.Violation{
					Path: activeName,
					Message: fmt.Sprintf("requires %q but no active model initialises it (producers: %s)",
						required, strings.Join(v.InitialisedBy, ", ")),
				})
			}
		}
	}
	return out
}

// checkIntervals rejects an update interval outside any active model's
// declared bounds.
func (c *Controller) checkIntervals(clock timing.Clock, descriptors []model.Descriptor) []config.Violation {
	var out []config.Violation
	interval := clock.Interval()
	for _, d := range descriptors {
		if !d.MinInterval.IsZero() {
			if cmp, err := units.Compare(interval, d.MinInterval); err == nil && cmp < 0 {
				out = append(out, config.Violation{
					Path: "core.timing.update_interval",
					Message: fmt.Sprintf("%s is below %s's bounds [%s, %s]",
						interval, d.Name, d.MinInterval, d.MaxInterval),
				})
			}
		}
		if !d.MaxInterval.IsZero() {
			if cmp, err := units.Compare(interval, d.MaxInterval); err == nil && cmp > 0 {
				out = append(out, config.Violation{
					Path: "core.timing.update_interval",
					Message: fmt.Sprintf("%s is above %s's bounds [%s, %s]",
						interval, d.Name, d.MinInterval, d.MaxInterval),
				})
			}
		}
	}
	return out
}

// checkData validates the external data entries against the catalogue and
// the grid.
func (c *Controller) checkData(active map[string]bool, cells int) []config.Violation {
	var out []config.Violation
	seen := map[string]bool{}
	for i, e := range c.cfg.Data() {
		path := fmt.Sprintf("data.entries[%d]", i)
		v, ok := c.catalogue.Get(e.Variable)
		if !ok {
			out = append(out, config.Violation{
				Path:    path,
				Message: fmt.Sprintf("unknown variable %q", e.Variable),
			})
			continue
		}
		if seen[e.Variable] {
			out = append(out, config.Violation{
				Path:    path,
				Message: fmt.Sprintf("variable %q supplied more than once", e.Variable),
			})
			continue
		}
		seen[e.Variable] = true
		if !v.ExternallySupplied() {
			out = append(out, config.Violation{
				Path:    path,
				Message: fmt.Sprintf("variable %q is not externally supplied (initialised by %s)",
					e.Variable, strings.Join(v.InitialisedBy, ", ")),
			})
			continue
		}
		if len(e.Values) > 0 && len(e.Values) != cells {
			out = append(out, config.Violation{
				Path:    path,
				Message: fmt.Sprintf("%d values for a grid of %d cells", len(e.Values), cells),
			})
		}
		if e.Unit != "" {
			dim, ok := units.DimensionOf(e.Unit)
			if !ok {
				out = append(out, config.Violation{
					Path:    path,
					Message: fmt.Sprintf("unknown unit %q", e.Unit),
				})
				continue
			}
			want, _ := units.DimensionOf(v.Unit)
			if dim != want {
				out = append(out, config.Violation{
					Path: path,
					Message: fmt.Sprintf("unit %q has dimension %s, variable %q needs %s",
						e.Unit, dim, e.Variable, want),
				})
			}
		}
	}
	return out
}

// externallyRequired lists the external variables an active model needs
// but the data section does not supply.
func (c *Controller) externallyRequired(active map[string]bool) []string {
	supplied := map[string]bool{}
	for _, e := range c.cfg.Data() {
		supplied[e.Variable] = true
	}
	var missing []string
	for activeName := range active {
		def, ok := c.registry.Get(activeName)
		if !ok {
			continue
		}
		for _, required := range def.Descriptor.Required {
			v, ok := c.catalogue.Get(required)
			if ok && v.ExternallySupplied() && !supplied[required] {
				missing = append(missing, required)
			}
		}
	}
	missing = dedupe(missing)
	sort.Strings(missing)
	return missing
}

func activeOf(names []string, active map[string]bool) []string {
	var out []string
	for _, name := range names {
		if name != variables.External && active[name] {
			out = append(out, name)
		}
	}
	return out
}

func dedupe(names []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
