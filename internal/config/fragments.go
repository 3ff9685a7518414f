package config

import (
	"github.com/mesocosm/mesocosm/internal/schema"
	"github.com/mesocosm/mesocosm/internal/units"
)

// Reserved section names; everything else at the top level must be an
// active model's section.
const (
	SectionCore   = "core"
	SectionOutput = "output"
	SectionData   = "data"
)

// Fragments returns the schema fragments for the global sections. The
// composition root merges these with the fragments of the registered
// models.
func Fragments() []schema.Fragment {
	return []schema.Fragment{coreFragment(), outputFragment(), dataFragment()}
}

func coreFragment() schema.Fragment {
	return schema.Fragment{
		Section: SectionCore,
		Keys: []schema.Key{
			{Name: "modules", Kind: schema.KindStringList, Required: true},
			{Name: "grid", Kind: schema.KindMapping, Children: []schema.Key{
				{Name: "shape", Kind: schema.KindString, Default: "square",
					Choices: []string{"square", "hexagon"}},
				{Name: "cell_area", Kind: schema.KindFloat, Default: 100.0, Min: schema.Float(1e-6)},
				{Name: "cell_nx", Kind: schema.KindInt, Default: 10, Min: schema.Float(1)},
				{Name: "cell_ny", Kind: schema.KindInt, Default: 10, Min: schema.Float(1)},
				{Name: "xoff", Kind: schema.KindFloat, Default: 0.0},
				{Name: "yoff", Kind: schema.KindFloat, Default: 0.0},
			}},
			{Name: "timing", Kind: schema.KindMapping, Children: []schema.Key{
				{Name: "start_date", Kind: schema.KindDate, Required: true},
				{Name: "update_interval", Kind: schema.KindQuantity, Dim: units.DimTime,
					Default: "1 month"},
				{Name: "run_length", Kind: schema.KindQuantity, Dim: units.DimTime,
					Required: true},
			}},
			{Name: "layers", Kind: schema.KindMapping, Children: []schema.Key{
				{Name: "canopy", Kind: schema.KindInt, Default: 2,
					Min: schema.Float(1), Max: schema.Float(10)},
				{Name: "soil", Kind: schema.KindInt, Default: 2, Min: schema.Float(1)},
			}},
		},
	}
}

func outputFragment() schema.Fragment {
	return schema.Fragment{
		Section: SectionOutput,
		Keys: []schema.Key{
			{Name: "initial", Kind: schema.KindBool, Default: false},
			{Name: "continuous", Kind: schema.KindBool, Default: false},
			{Name: "final", Kind: schema.KindBool, Default: true},
			{Name: "cadence", Kind: schema.KindInt, Default: 1, Min: schema.Float(1)},
			{Name: "dir", Kind: schema.KindString, Default: "out"},
			{Name: "required", Kind: schema.KindBool, Default: false},
		},
	}
}

func dataFragment() schema.Fragment {
	return schema.Fragment{
		Section: SectionData,
		Keys: []schema.Key{
			{Name: "entries", Kind: schema.KindMappingList, Children: []schema.Key{
				{Name: "variable", Kind: schema.KindString, Required: true},
				{Name: "unit", Kind: schema.KindString},
				{Name: "value", Kind: schema.KindFloat},
				{Name: "values", Kind: schema.KindFloatList},
			}},
		},
	}
}
