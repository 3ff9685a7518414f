package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mesocosm/mesocosm/internal/grid"
	"github.com/mesocosm/mesocosm/internal/schema"
	"github.com/mesocosm/mesocosm/internal/units"
)

// Section is one validated, default-filled top-level config section. Treat
// it as read-only; models take their typed view through Decode.
type Section map[string]any

// Decode re-reads the section into a typed struct via a yaml round trip,
// so quantity and date spellings land in their value types.
func (s Section) Decode(out any) error {
	raw, err := yaml.Marshal(map[string]any(s))
	if err != nil {
		return fmt.Errorf("config: encode section: %w", err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("config: decode section: %w", err)
	}
	return nil
}

// Timing is the typed view of core.timing.
type Timing struct {
	Start          time.Time
	UpdateInterval units.Quantity
	RunLength      units.Quantity
}

// Output is the typed view of the output section.
type Output struct {
	Initial    bool   `yaml:"initial"`
	Continuous bool   `yaml:"continuous"`
	Final      bool   `yaml:"final"`
	Cadence    int    `yaml:"cadence"`
	Dir        string `yaml:"dir"`
	Required   bool   `yaml:"required"`
}

// DataEntry is one externally supplied variable in the data section: a
// scalar broadcast over all cells, or one value per cell. Unit defaults to
// the variable's catalogue unit.
type DataEntry struct {
	Variable string    `yaml:"variable"`
	Unit     string    `yaml:"unit"`
	Value    *float64  `yaml:"value"`
	Values   []float64 `yaml:"values"`
}

// date accepts both the bare-date strings users write and the time.Time
// values yaml resolves timestamp-shaped scalars to.
type date struct {
	time.Time
}

func (d *date) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := schema.ParseDate(raw)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

// coreSection is the decode target for the core section.
type coreSection struct {
	Modules []string `yaml:"modules"`
	Grid    struct {
		Shape    string  `yaml:"shape"`
		CellArea float64 `yaml:"cell_area"`
		CellNX   int     `yaml:"cell_nx"`
		CellNY   int     `yaml:"cell_ny"`
		XOff     float64 `yaml:"xoff"`
		YOff     float64 `yaml:"yoff"`
	} `yaml:"grid"`
	Timing struct {
		StartDate      date           `yaml:"start_date"`
		UpdateInterval units.Quantity `yaml:"update_interval"`
		RunLength      units.Quantity `yaml:"run_length"`
	} `yaml:"timing"`
	Layers struct {
		Canopy int `yaml:"canopy"`
		Soil   int `yaml:"soil"`
	} `yaml:"layers"`
}

func (c coreSection) gridConfig() grid.Config {
	return grid.Config{
		Shape:    grid.Shape(c.Grid.Shape),
		CellArea: c.Grid.CellArea,
		NX:       c.Grid.CellNX,
		NY:       c.Grid.CellNY,
		XOff:     c.Grid.XOff,
		YOff:     c.Grid.YOff,
	}
}

// dataSection is the decode target for the data section.
type dataSection struct {
	Entries []DataEntry `yaml:"entries"`
}
