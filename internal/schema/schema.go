// Package schema defines the declarative configuration contract each model
// (and the core itself) contributes: a fragment per top-level config
// section, listing accepted keys with their types, constraints and
// defaults. Fragments are merged into one master schema at startup and the
// user document is validated against it before anything else runs.
package schema

import (
	"github.com/mesocosm/mesocosm/internal/units"
)

// Kind enumerates the value types a config key can declare.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindQuantity
	KindDate
	KindStringList
	KindFloatList
	KindMapping
	KindMappingList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindQuantity:
		return "quantity"
	case KindDate:
		return "date"
	case KindStringList:
		return "string list"
	case KindFloatList:
		return "float list"
	case KindMapping:
		return "mapping"
	case KindMappingList:
		return "mapping list"
	default:
		return "unknown"
	}
}

// Key declares one accepted config key.
type Key struct {
	Name     string
	Kind     Kind
	Required bool
	// Default fills the key when omitted; only meaningful for optional keys.
	Default any
	// Min and Max bound numeric kinds inclusively.
	Min *float64
	Max *float64
	// Choices enumerates the allowed values of a string key.
	Choices []string
	// Pattern is a regexp an accepted string must match.
	Pattern string
	// Dim constrains the dimension of a quantity key.
	Dim units.Dim
	// Children describe the keys of a mapping or of each mapping-list
	// element.
	Children []Key
}

// Fragment is one section's schema contribution.
type Fragment struct {
	// Section is the top-level config key this fragment owns; for a model
	// fragment it equals the model name.
	Section string
	// Open sections accept keys beyond the declared ones.
	Open bool
	Keys []Key
}

// Float returns a pointer for use as a Min or Max bound.
func Float(v float64) *float64 {
	return &v
}
