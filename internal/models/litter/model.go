package litter

import (
	"math"
	"time"

	"github.com/mesocosm/mesocosm/internal/config"
	"github.com/mesocosm/mesocosm/internal/data"
	"github.com/mesocosm/mesocosm/internal/model"
	"github.com/mesocosm/mesocosm/internal/schema"
	"github.com/mesocosm/mesocosm/internal/units"
)

const name = "litter"

// Config is the model's validated settings.
type Config struct {
	InitialPool float64 `yaml:"initial_pool"`
	// DecayRate is the pool fraction mineralised per interval at the
	// reference temperature of 20 C.
	DecayRate float64 `yaml:"decay_rate"`
	// Q10 scales decay with temperature per 10 C departure from reference.
	Q10 float64 `yaml:"q10"`
}

// Model pools litter fall from the canopy and decays it with a Q10
// temperature response driven by the top soil layer.
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
		Description:   "standing litter pool with temperature-sensitive decay",
		Required:      []string{"litter_fall", "soil_temperature"},
		DependsUpdate: []string{"microclimate"},
		MinInterval:   units.MustParse("1 day"),
		MaxInterval:   units.MustParse("3 months"),
	}
}

func fragment() schema.Fragment {
	return schema.Fragment{
		Section: name,
		Keys: []schema.Key{
			{Name: "initial_pool", Kind: schema.KindFloat, Default: 0.5,
				Min: schema.Float(0)},
			{Name: "decay_rate", Kind: schema.KindFloat, Default: 0.01,
				Min: schema.Float(0), Max: schema.Float(1)},
			{Name: "q10", Kind: schema.KindFloat, Default: 2.0,
				Min: schema.Float(1), Max: schema.Float(10)},
		},
	}
}

// Initialise seeds the pool.
func (m *Model) Initialise(section config.Section, store *data.Store) error {
	if err := section.Decode(&m.cfg); err != nil {
		return err
	}
	pool := make([]float64, store.Cells())
	for i := range pool {
		pool[i] = m.cfg.InitialPool
	}
	return store.Write(name, "litter_pool", pool, "kg C m-2")
}

// Update adds the interval's litter fall and removes decay.
func (m *Model) Update(store *data.Store, _ time.Time) error {
	fall, err := store.Read(name, "litter_fall")
	if err != nil {
		return err
	}
	soilTemp, err := store.Read(name, "soil_temperature")
	if err != nil {
		return err
	}
	pool, err := store.Read(name, "litter_pool")
	if err != nil {
		return err
	}

	top := store.Stack().Soil()[0]
	for cell := range pool {
		t := soilTemp[store.Index(top, cell)]
		decay := m.cfg.DecayRate * math.Pow(m.cfg.Q10, (t-20)/10) * pool[cell]
		pool[cell] = math.Max(0, pool[cell]+fall[cell]-decay)
	}
	return store.Write(name, "litter_pool", pool, "kg C m-2")
}
