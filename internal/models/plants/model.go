package plants

import (
	"math"
	"time"

	"github.com/mesocosm/mesocosm/internal/config"
	"github.com/mesocosm/mesocosm/internal/data"
	"github.com/mesocosm/mesocosm/internal/model"
	"github.com/mesocosm/mesocosm/internal/schema"
	"github.com/mesocosm/mesocosm/internal/units"
)

const name = "plants"

// Config is the model's validated settings.
type Config struct {
	InitialLAI float64 `yaml:"initial_lai"`
	MaxLAI     float64 `yaml:"max_lai"`
	// GrowthRate is the logistic rate per update interval under saturating
	// water and light.
	GrowthRate   float64 `yaml:"growth_rate"`
	CanopyHeight float64 `yaml:"canopy_height"`
	// ShedFraction is the share of leaf area lost per interval; it leaves
	// the canopy as litter fall.
	ShedFraction float64 `yaml:"shed_fraction"`
	// Half-saturation constants of the growth limitation factors.
	WaterHalfSat float64 `yaml:"water_half_sat"`
	LightHalfSat float64 `yaml:"light_half_sat"`
	// TranspirationCoeff converts leaf area into evapotranspiration depth
	// per interval.
	TranspirationCoeff float64 `yaml:"transpiration_coeff"`
	// LitterCarbon converts shed leaf area into litter carbon mass.
	LitterCarbon float64 `yaml:"litter_carbon"`
}

// Model grows canopy leaf area logistically, limited by soil moisture and
// shortwave radiation, and sheds a fixed fraction each interval as litter
// fall. It also owns the layer height structure the microclimate
// interpolates over.
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
		Description: "logistic leaf-area growth limited by water and light",
		Required:    []string{"soil_moisture", "downward_shortwave_radiation"},
		MinInterval: units.MustParse("1 day"),
		MaxInterval: units.MustParse("3 months"),
	}
}

func fragment() schema.Fragment {
	return schema.Fragment{
		Section: name,
		Keys: []schema.Key{
			{Name: "initial_lai", Kind: schema.KindFloat, Default: 1.0,
				Min: schema.Float(0.01), Max: schema.Float(20)},
			{Name: "max_lai", Kind: schema.KindFloat, Default: 5.0,
				Min: schema.Float(0.1), Max: schema.Float(20)},
			{Name: "growth_rate", Kind: schema.KindFloat, Default: 0.1,
				Min: schema.Float(0), Max: schema.Float(1)},
			{Name: "canopy_height", Kind: schema.KindFloat, Default: 30.0,
				Min: schema.Float(2), Max: schema.Float(120)},
			{Name: "shed_fraction", Kind: schema.KindFloat, Default: 0.02,
				Min: schema.Float(0), Max: schema.Float(1)},
			{Name: "water_half_sat", Kind: schema.KindFloat, Default: 50.0,
				Min: schema.Float(1)},
			{Name: "light_half_sat", Kind: schema.KindFloat, Default: 150.0,
				Min: schema.Float(1)},
			{Name: "transpiration_coeff", Kind: schema.KindFloat, Default: 2.0,
				Min: schema.Float(0)},
			{Name: "litter_carbon", Kind: schema.KindFloat, Default: 0.05,
				Min: schema.Float(0)},
		},
	}
}

// Initialise writes the layer height structure and the starting canopy.
func (m *Model) Initialise(section config.Section, store *data.Store) error {
	if err := section.Decode(&m.cfg); err != nil {
		return err
	}
	if err := m.writeHeights(store); err != nil {
		return err
	}
	cells := store.Cells()
	if err := m.writeLAI(store, uniform(cells, m.cfg.InitialLAI)); err != nil {
		return err
	}
	if err := store.Write(name, "evapotranspiration", make([]float64, cells), "mm"); err != nil {
		return err
	}
	return store.Write(name, "litter_fall", make([]float64, cells), "kg C m-2")
}

// Update advances the canopy by one interval.
func (m *Model) Update(store *data.Store, _ time.Time) error {
	moisture, err := store.Read(name, "soil_moisture")
	if err != nil {
		return err
	}
	radiation, err := store.Read(name, "downward_shortwave_radiation")
	if err != nil {
		return err
	}
	lai, err := store.Read(name, "leaf_area_index")
	if err != nil {
		return err
	}

	stack := store.Stack()
	cells := store.Cells()
	total := make([]float64, cells)
	for cell := 0; cell < cells; cell++ {
		for _, layer := range stack.Canopy() {
			if v := lai[store.Index(layer, cell)]; !math.IsNaN(v) {
				total[cell] += v
			}
		}
	}

	et := make([]float64, cells)
	litter := make([]float64, cells)
	for cell := 0; cell < cells; cell++ {
		waterFactor := moisture[cell] / (moisture[cell] + m.cfg.WaterHalfSat)
		lightFactor := radiation[cell] / (radiation[cell] + m.cfg.LightHalfSat)
		growth := m.cfg.GrowthRate * total[cell] * (1 - total[cell]/m.cfg.MaxLAI) *
			waterFactor * lightFactor
		shed := m.cfg.ShedFraction * total[cell]
		total[cell] = math.Max(0.01, total[cell]+growth-shed)
		et[cell] = m.cfg.TranspirationCoeff * total[cell] * waterFactor * lightFactor
		litter[cell] = shed * m.cfg.LitterCarbon
	}

	if err := m.writeHeights(store); err != nil {
		return err
	}
	if err := m.writeLAI(store, total); err != nil {
		return err
	}
	if err := store.Write(name, "evapotranspiration", et, "mm"); err != nil {
		return err
	}
	return store.Write(name, "litter_fall", litter, "kg C m-2")
}

// writeLAI spreads each cell's total leaf area evenly over the canopy
// layers; all other rows stay NaN.
func (m *Model) writeLAI(store *data.Store, total []float64) error {
	stack := store.Stack()
	cells := store.Cells()
	values := nanSlice(cells * stack.Total())
	canopy := stack.Canopy()
	for cell := 0; cell < cells; cell++ {
		perLayer := total[cell] / float64(len(canopy))
		for _, layer := range canopy {
			values[store.Index(layer, cell)] = perLayer
		}
	}
	return store.Write(name, "leaf_area_index", values, "m m-1")
}

// writeHeights fills the full height column: reference above the canopy,
// canopy layers spaced down from the canopy top, subcanopy at 1.5 m,
// surface at ground level, and soil layers at increasing negative depth.
func (m *Model) writeHeights(store *data.Store) error {
	stack := store.Stack()
	cells := store.Cells()
	values := make([]float64, cells*stack.Total())
	canopy := stack.Canopy()
	for cell := 0; cell < cells; cell++ {
		values[store.Index(stack.Above(), cell)] = m.cfg.CanopyHeight + 2
		for i, layer := range canopy {
			frac := float64(i) / float64(len(canopy))
			values[store.Index(layer, cell)] = m.cfg.CanopyHeight * (1 - 0.8*frac)
		}
		values[store.Index(stack.Subcanopy(), cell)] = 1.5
		values[store.Index(stack.Surface(), cell)] = 0
		for j, layer := range stack.Soil() {
			values[store.Index(layer, cell)] = -0.25 * math.Pow(4, float64(j))
		}
	}
	return store.Write(name, "layer_heights", values, "m")
}

func uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
