// Package layers defines the fixed vertical layer stack shared by all
// layered variables: one above-canopy layer, a configurable number of canopy
// layers, a subcanopy layer at 1.5 m, a surface layer, and a configurable
// number of soil layers, top to bottom. Layered arrays always carry the full
// stack; rows for roles a model does not populate hold NaN.
package layers

import "fmt"

// Role names the function of a vertical layer.
type Role string

const (
	RoleAbove     Role = "above"
	RoleCanopy    Role = "canopy"
	RoleSubcanopy Role = "subcanopy"
	RoleSurface   Role = "surface"
	RoleSoil      Role = "soil"
)

// MaxCanopyLayers bounds the canopy resolution.
const MaxCanopyLayers = 10

// Stack is the resolved layer structure of a run. The zero value has no
// layers; build one with New.
type Stack struct {
	canopy int
	soil   int
	roles  []Role
}

// New builds a stack with the given canopy and soil layer counts.
func New(canopy, soil int) (Stack, error) {
	if canopy < 1 || canopy > MaxCanopyLayers {
		return Stack{}, fmt.Errorf("layers: canopy layers must be 1..%d, got %d", MaxCanopyLayers, canopy)
	}
	if soil < 1 {
		return Stack{}, fmt.Errorf("layers: soil layers must be at least 1, got %d", soil)
	}
	roles := make([]Role, 0, canopy+soil+3)
	roles = append(roles, RoleAbove)
	for i := 0; i < canopy; i++ {
		roles = append(roles, RoleCanopy)
	}
	roles = append(roles, RoleSubcanopy, RoleSurface)
	for i := 0; i < soil; i++ {
		roles = append(roles, RoleSoil)
	}
	return Stack{canopy: canopy, soil: soil, roles: roles}, nil
}

// Total returns the number of layers in the stack.
func (s Stack) Total() int {
	return len(s.roles)
}

// AboveGround returns the number of non-soil layers.
func (s Stack) AboveGround() int {
	return len(s.roles) - s.soil
}

// Role returns the role of layer index i, counted from the top.
func (s Stack) Role(i int) Role {
	return s.roles[i]
}

// Roles returns a copy of the full role list, top to bottom.
func (s Stack) Roles() []Role {
	out := make([]Role, len(s.roles))
	copy(out, s.roles)
	return out
}

// Above returns the index of the above-canopy layer.
func (s Stack) Above() int {
	return 0
}

// Canopy returns the indices of the canopy layers.
func (s Stack) Canopy() []int {
	out := make([]int, s.canopy)
	for i := range out {
		out[i] = 1 + i
	}
	return out
}

// Subcanopy returns the index of the subcanopy layer.
func (s Stack) Subcanopy() int {
	return 1 + s.canopy
}

// Surface returns the index of the surface layer.
func (s Stack) Surface() int {
	return 2 + s.canopy
}

// Soil returns the indices of the soil layers.
func (s Stack) Soil() []int {
	out := make([]int, s.soil)
	for i := range out {
		out[i] = 3 + s.canopy + i
	}
	return out
}
