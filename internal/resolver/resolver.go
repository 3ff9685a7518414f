// Package resolver computes the execution order of the active models for
// one phase. The graph combines the dependencies each model declares with
// edges derived from the variable catalogue (a variable's sole active
// producer runs before its consumers). Ties are broken by model name so
// the order is reproducible for identical input.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mesocosm/mesocosm/internal/model"
	"github.com/mesocosm/mesocosm/internal/variables"
)

// UnregisteredDependencyError reports a declared dependency on a model
// that is not in the active set.
type UnregisteredDependencyError struct {
	Model      string
	Dependency string
	Phase      model.Phase
}

func (e *UnregisteredDependencyError) Error() string {
	return fmt.Sprintf("resolver: %s declares %s dependency on %q, which is not active",
		e.Model, e.Phase, e.Dependency)
}

// CycleError reports that no topological order exists, naming the models
// on the cycle. No partial ordering is returned.
type CycleError struct {
	Phase   model.Phase
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("resolver: %s dependencies of %s form a cycle",
		e.Phase, strings.Join(e.Members, ", "))
}

// Order returns the names of the active models in a valid execution order
// for the phase.
func Order(phase model.Phase, active []model.Descriptor, cat *variables.Catalogue) ([]string, error) {
	names := make(map[string]bool, len(active))
	for _, d := range active {
		names[d.Name] = true
	}

	// edges[b][a] means b runs before a.
	edges := make(map[string]map[string]bool, len(active))
	indegree := make(map[string]int, len(active))
	for _, d := range active {
		edges[d.Name] = map[string]bool{}
		indegree[d.Name] = 0
	}
	addEdge := func(before, after string) {
		if !edges[before][after] {
			edges[before][after] = true
			indegree[after]++
		}
	}

	for _, d := range active {
		for _, dep := range d.Depends(phase) {
			if dep == d.Name {
				return nil, fmt.Errorf("resolver: %s declares a %s dependency on itself", d.Name, phase)
			}
			if !names[dep] {
				return nil, &UnregisteredDependencyError{Model: d.Name, Dependency: dep, Phase: phase}
			}
			addEdge(dep, d.Name)
		}
	}

	for _, varName := range cat.Names() {
		v, _ := cat.Get(varName)
		producers := activeProducers(phase, v, names)
		if len(producers) != 1 {
			// No active producer is a preflight concern; multiple active
			// producers are rejected there too.
			continue
		}
		producer := producers[0]
		for _, consumer := range v.UsedBy {
			if consumer != producer && names[consumer] {
				addEdge(producer, consumer)
			}
		}
	}

	ready := make([]string, 0, len(active))
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(active))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		released := make([]string, 0)
		for after := range edges[next] {
			indegree[after]--
			if indegree[after] == 0 {
				released = append(released, after)
			}
		}
		ready = append(ready, released...)
		sort.Strings(ready)
	}

	if len(order) != len(active) {
		return nil, &CycleError{Phase: phase, Members: cycleMembers(edges, order, names)}
	}
	return order, nil
}

func activeProducers(phase model.Phase, v variables.Variable, active map[string]bool) []string {
	source := v.InitialisedBy
	if phase == model.PhaseUpdate {
		source = v.UpdatedBy
	}
	out := make([]string, 0, len(source))
	for _, name := range source {
		if name != variables.External && active[name] {
			out = append(out, name)
		}
	}
	return out
}

// cycleMembers trims the unordered leftovers down to the models that
// actually sit on a cycle: nodes with no remaining successors only hang
// off a cycle and are peeled away.
func cycleMembers(edges map[string]map[string]bool, ordered []string, names map[string]bool) []string {
	remaining := make(map[string]bool, len(names))
	for name := range names {
		remaining[name] = true
	}
	for _, name := range ordered {
		delete(remaining, name)
	}
	for {
		trimmed := false
		for name := range remaining {
			hasSuccessor := false
			for after := range edges[name] {
				if remaining[after] {
					hasSuccessor = true
					break
				}
			}
			if !hasSuccessor {
				delete(remaining, name)
				trimmed = true
			}
		}
		if !trimmed {
			break
		}
	}
	members := make([]string, 0, len(remaining))
	for name := range remaining {
		members = append(members, name)
	}
	sort.Strings(members)
	return members
}
