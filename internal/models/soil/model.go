package soil

import (
	"math"
	"time"

	"github.com/mesocosm/mesocosm/internal/config"
	"github.com/mesocosm/mesocosm/internal/data"
	"github.com/mesocosm/mesocosm/internal/model"
	"github.com/mesocosm/mesocosm/internal/schema"
	"github.com/mesocosm/mesocosm/internal/units"
)

const name = "soil"

// Config is the model's validated settings.
type Config struct {
	InitialLMWC float64 `yaml:"initial_lmwc"`
	InitialMAOM float64 `yaml:"initial_maom"`
	// LitterInputRate is the fraction of the standing litter pool that
	// dissolves into LMWC per interval.
	LitterInputRate float64 `yaml:"litter_input_rate"`
	// SorptionRate and DesorptionRate move carbon between LMWC and MAOM.
	SorptionRate   float64 `yaml:"sorption_rate"`
	DesorptionRate float64 `yaml:"desorption_rate"`
	// RespirationRate is the LMWC fraction respired per interval at the
	// reference temperature of 20 C.
	RespirationRate float64 `yaml:"respiration_rate"`
	Q10             float64 `yaml:"q10"`
	// MoistureHalfSat is the soil moisture at which microbial activity
	// runs at half speed.
	MoistureHalfSat float64 `yaml:"moisture_half_sat"`
}

// Model cycles carbon between a low molecular weight pool (LMWC) and a
// mineral-associated pool (MAOM). Litter dissolves into LMWC, sorption and
// desorption exchange between the pools, and respiration drains LMWC with
// temperature and moisture sensitivity.
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
		Name:          name,
		Description:   "two-pool soil carbon cycling with Q10 respiration",
		Required:      []string{"litter_pool", "soil_temperature", "soil_moisture"},
		DependsUpdate: []string{"litter"},
		MinInterval:   units.MustParse("30 minutes"),
		MaxInterval:   units.MustParse("3 months"),
	}
}

func fragment() schema.Fragment {
	return schema.Fragment{
		Section: name,
		Keys: []schema.Key{
			{Name: "initial_lmwc", Kind: schema.KindFloat, Default: 0.05,
				Min: schema.Float(0)},
			{Name: "initial_maom", Kind: schema.KindFloat, Default: 2.5,
				Min: schema.Float(0)},
			{Name: "litter_input_rate", Kind: schema.KindFloat, Default: 0.01,
				Min: schema.Float(0), Max: schema.Float(1)},
			{Name: "sorption_rate", Kind: schema.KindFloat, Default: 0.02,
				Min: schema.Float(0), Max: schema.Float(1)},
			{Name: "desorption_rate", Kind: schema.KindFloat, Default: 0.005,
				Min: schema.Float(0), Max: schema.Float(1)},
			{Name: "respiration_rate", Kind: schema.KindFloat, Default: 0.01,
				Min: schema.Float(0), Max: schema.Float(1)},
			{Name: "q10", Kind: schema.KindFloat, Default: 2.0,
				Min: schema.Float(1), Max: schema.Float(10)},
			{Name: "moisture_half_sat", Kind: schema.KindFloat, Default: 50.0,
				Min: schema.Float(1)},
		},
	}
}

// Initialise seeds both pools.
func (m *Model) Initialise(section config.Section, store *data.Store) error {
	if err := section.Decode(&m.cfg); err != nil {
		return err
	}
	cells := store.Cells()
	lmwc := make([]float64, cells)
	maom := make([]float64, cells)
	for i := 0; i < cells; i++ {
		lmwc[i] = m.cfg.InitialLMWC
		maom[i] = m.cfg.InitialMAOM
	}
	if err := store.Write(name, "soil_c_pool_lmwc", lmwc, "kg C m-2"); err != nil {
		return err
	}
	return store.Write(name, "soil_c_pool_maom", maom, "kg C m-2")
}

// Update advances the pools by one interval.
func (m *Model) Update(store *data.Store, _ time.Time) error {
	litterPool, err := store.Read(name, "litter_pool")
	if err != nil {
		return err
	}
	soilTemp, err := store.Read(name, "soil_temperature")
	if err != nil {
		return err
	}
	moisture, err := store.Read(name, "soil_moisture")
	if err != nil {
		return err
	}
	lmwc, err := store.Read(name, "soil_c_pool_lmwc")
	if err != nil {
		return err
	}
	maom, err := store.Read(name, "soil_c_pool_maom")
	if err != nil {
		return err
	}

	top := store.Stack().Soil()[0]
	for cell := range lmwc {
		t := soilTemp[store.Index(top, cell)]
		tempFactor := math.Pow(m.cfg.Q10, (t-20)/10)
		moistFactor := moisture[cell] / (moisture[cell] + m.cfg.MoistureHalfSat)
		activity := tempFactor * moistFactor

		input := m.cfg.LitterInputRate * litterPool[cell] * activity
		sorption := m.cfg.SorptionRate * lmwc[cell]
		desorption := m.cfg.DesorptionRate * maom[cell]
		respiration := m.cfg.RespirationRate * lmwc[cell] * activity

		lmwc[cell] = math.Max(0, lmwc[cell]+input-sorption+desorption-respiration)
		maom[cell] = math.Max(0, maom[cell]+sorption-desorption)
	}

	if err := store.Write(name, "soil_c_pool_lmwc", lmwc, "kg C m-2"); err != nil {
		return err
	}
	return store.Write(name, "soil_c_pool_maom", maom, "kg C m-2")
}
