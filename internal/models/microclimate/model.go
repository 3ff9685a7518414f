package microclimate

import (
	"fmt"
	"math"
	"time"

	"github.com/mesocosm/mesocosm/internal/config"
	"github.com/mesocosm/mesocosm/internal/data"
	"github.com/mesocosm/mesocosm/internal/model"
	"github.com/mesocosm/mesocosm/internal/schema"
	"github.com/mesocosm/mesocosm/internal/units"
)

const name = "microclimate"

// Config is the model's validated settings.
type Config struct {
	// TemperatureGradient and HumidityGradient scale the offset between
	// the reference value and the forest floor, per unit of leaf area
	// index summed over the canopy.
	TemperatureGradient float64 `yaml:"temperature_gradient"`
	HumidityGradient    float64 `yaml:"humidity_gradient"`
	// ReferenceOffset is the height of the reference measurement above
	// the canopy top.
	ReferenceOffset float64 `yaml:"reference_offset"`
}

// Model interpolates the reference climate down the vertical stack: a
// linear leaf-area regression sets the forest-floor offset and a
// logarithmic height profile fills the layers between, with soil
// temperature blended toward the mean annual temperature with depth.
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
		Description: "interpolates reference climate over the vertical layer stack",
		Required: []string{
			"air_temperature_ref", "relative_humidity_ref",
			"atmospheric_pressure_ref", "atmospheric_co2_ref",
			"mean_annual_temperature", "leaf_area_index", "layer_heights",
		},
		MinInterval: units.MustParse("1 day"),
		MaxInterval: units.MustParse("1 month"),
	}
}

func fragment() schema.Fragment {
	return schema.Fragment{
		Section: name,
		Keys: []schema.Key{
			{Name: "temperature_gradient", Kind: schema.KindFloat, Default: -1.27,
				Min: schema.Float(-10), Max: schema.Float(0)},
			{Name: "humidity_gradient", Kind: schema.KindFloat, Default: 5.4,
				Min: schema.Float(0), Max: schema.Float(50)},
			{Name: "reference_offset", Kind: schema.KindFloat, Default: 2.0,
				Min: schema.Float(0.1), Max: schema.Float(10)},
		},
	}
}

// Initialise decodes the config section and writes the first profiles;
// plant structure is already in the store because plants initialise
// first.
func (m *Model) Initialise(section config.Section, store *data.Store) error {
	if err := section.Decode(&m.cfg); err != nil {
		return err
	}
	return m.interpolate(store)
}

// Update recomputes the profiles from the current reference climate and
// canopy structure.
func (m *Model) Update(store *data.Store, _ time.Time) error {
	return m.interpolate(store)
}

func (m *Model) interpolate(store *data.Store) error {
	refs := map[string][]float64{}
	for _, ref := range []string{
		"air_temperature_ref", "relative_humidity_ref", "atmospheric_pressure_ref",
		"atmospheric_co2_ref", "mean_annual_temperature", "leaf_area_index",
		"layer_heights",
	} {
		values, err := store.Read(name, ref)
		if err != nil {
			return err
		}
		refs[ref] = values
	}

	stack := store.Stack()
	cells := store.Cells()
	total := stack.Total()
	airT := nanSlice(cells * total)
	relH := nanSlice(cells * total)
	vpd := nanSlice(cells * total)
	pressure := nanSlice(cells * total)
	co2 := nanSlice(cells * total)
	soilT := nanSlice(cells * total)

	heights := refs["layer_heights"]
	soilIdx := stack.Soil()
	for cell := 0; cell < cells; cell++ {
		tRef := refs["air_temperature_ref"][cell]
		rhRef := refs["relative_humidity_ref"][cell]
		laiSum := 0.0
		for _, layer := range stack.Canopy() {
			if v := refs["leaf_area_index"][store.Index(layer, cell)]; !math.IsNaN(v) {
				laiSum += v
			}
		}
		refHeight := heights[store.Index(stack.Above(), cell)] + m.cfg.ReferenceOffset

		for layer := 0; layer < stack.AboveGround(); layer++ {
			i := store.Index(layer, cell)
			h := heights[i]
			f := floorWeight(h, refHeight)
			t := tRef + m.cfg.TemperatureGradient*laiSum*f
			rh := clamp(rhRef+m.cfg.HumidityGradient*laiSum*f, 0, 100)
			airT[i] = t
			relH[i] = rh
			vpd[i] = saturationPressure(t) * (1 - rh/100)
			pressure[i] = refs["atmospheric_pressure_ref"][cell]
			co2[i] = refs["atmospheric_co2_ref"][cell]
		}

		// Soil temperature blends the surface air temperature toward the
		// mean annual temperature with depth.
		surfaceT := airT[store.Index(stack.Surface(), cell)]
		annual := refs["mean_annual_temperature"][cell]
		for j, layer := range soilIdx {
			w := float64(j+1) / float64(len(soilIdx)+1)
			soilT[store.Index(layer, cell)] = surfaceT*(1-w) + annual*w
		}
	}

	for varName, values := range map[string][]float64{
		"air_temperature":         airT,
		"relative_humidity":       relH,
		"vapour_pressure_deficit": vpd,
		"atmospheric_pressure":    pressure,
		"atmospheric_co2":         co2,
		"soil_temperature":        soilT,
	} {
		v := unitOf(varName)
		if err := store.Write(name, varName, values, v); err != nil {
			return fmt.Errorf("microclimate: %w", err)
		}
	}
	return nil
}

func unitOf(varName string) string {
	switch varName {
	case "air_temperature", "soil_temperature":
		return "C"
	case "relative_humidity":
		return "%"
	case "vapour_pressure_deficit", "atmospheric_pressure":
		return "kPa"
	case "atmospheric_co2":
		return "ppm"
	default:
		return ""
	}
}

// floorWeight is 0 at the reference height and grows logarithmically
// toward 1 at the ground.
func floorWeight(h, refHeight float64) float64 {
	if refHeight <= 0 || h < 0 {
		return 1
	}
	if h >= refHeight {
		return 0
	}
	return 1 - math.Log(h+1)/math.Log(refHeight+1)
}

// saturationPressure is the Magnus form of saturated vapour pressure in
// kPa for a temperature in C.
func saturationPressure(t float64) float64 {
	return 0.61078 * math.Exp(17.27*t/(t+237.3))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
