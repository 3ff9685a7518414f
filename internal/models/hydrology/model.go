package hydrology

import (
	"time"

	"github.com/mesocosm/mesocosm/internal/config"
	"github.com/mesocosm/mesocosm/internal/data"
	"github.com/mesocosm/mesocosm/internal/model"
	"github.com/mesocosm/mesocosm/internal/schema"
	"github.com/mesocosm/mesocosm/internal/units"
)

const name = "hydrology"

// Config is the model's validated settings.
type Config struct {
	// Capacity is the bucket size in mm; moisture above it leaves as
	// runoff.
	Capacity        float64 `yaml:"capacity"`
	InitialMoisture float64 `yaml:"initial_moisture"`
	// RunoffCoefficient is the fraction of precipitation shed directly at
	// full elevation exposure.
	RunoffCoefficient float64 `yaml:"runoff_coefficient"`
	// ElevationScale is the elevation in m at which half the runoff
	// coefficient applies.
	ElevationScale float64 `yaml:"elevation_scale"`
	// DrainageRate is the fraction of stored moisture lost to deep
	// drainage per update interval.
	DrainageRate float64 `yaml:"drainage_rate"`
}

// Model is a per-cell bucket: precipitation partly infiltrates and partly
// runs off, stored moisture drains, and overflow above capacity joins the
// runoff.
type Model struct {
	model.Base
	cfg Config
}

// Register installs the model definition.
func Register(reg *model.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(model.Definition{
		Descriptor: descriptor(),
		Fragment:   fragment(),
		New: func() (model.Model, error) {
			return New(), nil
		},
	})
}

// New constructs an uninitialised instance.
func New() *Model {
	return &Model{Base: model.NewBase(descriptor())}
}

func descriptor() model.Descriptor {
	return model.Descriptor{
		Name:        name,
		Description: "per-cell bucket model of soil moisture and surface runoff",
		Required:    []string{"precipitation", "elevation"},
		MinInterval: units.MustParse("1 hour"),
		MaxInterval: units.MustParse("1 month"),
	}
}

func fragment() schema.Fragment {
	return schema.Fragment{
		Section: name,
		Keys: []schema.Key{
			{Name: "capacity", Kind: schema.KindFloat, Default: 150.0,
				Min: schema.Float(1)},
			{Name: "initial_moisture", Kind: schema.KindFloat, Default: 75.0,
				Min: schema.Float(0)},
			{Name: "runoff_coefficient", Kind: schema.KindFloat, Default: 0.3,
				Min: schema.Float(0), Max: schema.Float(1)},
			{Name: "elevation_scale", Kind: schema.KindFloat, Default: 100.0,
				Min: schema.Float(1)},
			{Name: "drainage_rate", Kind: schema.KindFloat, Default: 0.05,
				Min: schema.Float(0), Max: schema.Float(1)},
		},
	}
}

// Initialise fills the bucket to the configured initial moisture with no
// runoff.
func (m *Model) Initialise(section config.Section, store *data.Store) error {
	if err := section.Decode(&m.cfg); err != nil {
		return err
	}
	cells := store.Cells()
	moisture := make([]float64, cells)
	for i := range moisture {
		moisture[i] = m.cfg.InitialMoisture
	}
	if err := store.Write(name, "soil_moisture", moisture, "mm"); err != nil {
		return err
	}
	return store.Write(name, "surface_runoff", make([]float64, cells), "mm")
}

// Update advances the water balance by one interval.
func (m *Model) Update(store *data.Store, _ time.Time) error {
	precip, err := store.Read(name, "precipitation")
	if err != nil {
		return err
	}
	elevation, err := store.Read(name, "elevation")
	if err != nil {
		return err
	}
	moisture, err := store.Read(name, "soil_moisture")
	if err != nil {
		return err
	}

	runoff := make([]float64, len(moisture))
	for i := range moisture {
		exposure := elevation[i] / (elevation[i] + m.cfg.ElevationScale)
		direct := precip[i] * m.cfg.RunoffCoefficient * exposure
		stored := moisture[i] + (precip[i] - direct) - m.cfg.DrainageRate*moisture[i]
		overflow := 0.0
		if stored > m.cfg.Capacity {
			overflow = stored - m.cfg.Capacity
			stored = m.cfg.Capacity
		}
		if stored < 0 {
			stored = 0
		}
		moisture[i] = stored
		runoff[i] = direct + overflow
	}
	if err := store.Write(name, "soil_moisture", moisture, "mm"); err != nil {
		return err
	}
	return store.Write(name, "surface_runoff", runoff, "mm")
}
