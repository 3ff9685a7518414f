package microclimate

import (
	"math"
	"testing"
	"time"

	"github.com/mesocosm/mesocosm/internal/config"
	"github.com/mesocosm/mesocosm/internal/data"
	"github.com/mesocosm/mesocosm/internal/layers"
	"github.com/mesocosm/mesocosm/internal/schema"
	"github.com/mesocosm/mesocosm/internal/variables"
)

// testStore builds a one-cell store with the plant structure and reference
// climate the interpolation consumes.
func testStore(t *testing.T, tRef, rhRef, lai float64) *data.Store {
	t.Helper()
	stack, err := layers.New(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	store, err := data.NewStore(variables.Standard(), 1, stack)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"air_temperature_ref", "relative_humidity_ref", "atmospheric_pressure_ref",
		"atmospheric_co2_ref", "mean_annual_temperature",
		"leaf_area_index", "layer_heights",
		"air_temperature", "relative_humidity", "vapour_pressure_deficit",
		"atmospheric_pressure", "atmospheric_co2", "soil_temperature",
	} {
		if err := store.Create(name); err != nil {
			t.Fatal(err)
		}
	}

	ext := variables.External
	for name, value := range map[string]float64{
		"air_temperature_ref":      tRef,
		"relative_humidity_ref":    rhRef,
		"atmospheric_pressure_ref": 101.3,
		"atmospheric_co2_ref":      400,
		"mean_annual_temperature":  18,
	} {
		v, _ := variables.Standard().Get(name)
		if err := store.Write(ext, name, []float64{value}, v.Unit); err != nil {
			t.Fatal(err)
		}
	}

	total := stack.Total()
	heights := make([]float64, total)
	heights[stack.Above()] = 32
	canopy := stack.Canopy()
	heights[canopy[0]] = 30
	heights[canopy[1]] = 18
	heights[stack.Subcanopy()] = 1.5
	heights[stack.Surface()] = 0
	heights[stack.Soil()[0]] = -0.25
	heights[stack.Soil()[1]] = -1.0
	if err := store.Write("plants", "layer_heights", heights, "m"); err != nil {
		t.Fatal(err)
	}

	laiValues := make([]float64, total)
	for i := range laiValues {
		laiValues[i] = math.NaN()
	}
	for _, layer := range canopy {
		laiValues[layer] = lai / float64(len(canopy))
	}
	if err := store.Write("plants", "leaf_area_index", laiValues, "m m-1"); err != nil {
		t.Fatal(err)
	}
	return store
}

func initialised(t *testing.T, store *data.Store) *Model {
	t.Helper()
	filled, problems := schema.ApplySection(fragment(), map[string]any{})
	if len(problems) != 0 {
		t.Fatalf("section problems: %v", problems)
	}
	m := New()
	if err := m.Initialise(config.Section(filled), store); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestInterpolationProfiles(t *testing.T) {
	store := testStore(t, 25, 60, 2)
	initialised(t, store)
	stack := store.Stack()

	airT, _, _, _ := store.Peek("air_temperature")
	// Floor weight is 1 at the surface: the full gradient applies there.
	surface := airT[stack.Surface()]
	if math.Abs(surface-(25-1.27*2)) > 1e-9 {
		t.Fatalf("unexpected surface temperature %g", surface)
	}
	// Temperature decreases monotonically from the top of the profile to
	// the ground under a closed canopy.
	if !(airT[stack.Above()] > airT[stack.Subcanopy()]) {
		t.Fatalf("profile not decreasing: above %g, subcanopy %g",
			airT[stack.Above()], airT[stack.Subcanopy()])
	}
	for _, layer := range stack.Soil() {
		if !math.IsNaN(airT[layer]) {
			t.Fatalf("air temperature written into a soil layer")
		}
	}

	relH, _, _, _ := store.Peek("relative_humidity")
	if relH[stack.Surface()] <= 60 {
		t.Fatalf("humidity must rise toward the floor, got %g", relH[stack.Surface()])
	}

	vpd, _, _, _ := store.Peek("vapour_pressure_deficit")
	for layer := 0; layer < stack.AboveGround(); layer++ {
		if vpd[layer] < 0 {
			t.Fatalf("negative vapour pressure deficit at layer %d: %g", layer, vpd[layer])
		}
	}

	co2, _, _, _ := store.Peek("atmospheric_co2")
	if co2[stack.Above()] != 400 || co2[stack.Surface()] != 400 {
		t.Fatalf("co2 must be constant over the profile")
	}
}

func TestSoilTemperatureBlendsTowardAnnualMean(t *testing.T) {
	store := testStore(t, 25, 60, 2)
	initialised(t, store)
	stack := store.Stack()

	soilT, _, _, _ := store.Peek("soil_temperature")
	airT, _, _, _ := store.Peek("air_temperature")
	surface := airT[stack.Surface()]
	annual := 18.0

	top := soilT[stack.Soil()[0]]
	deep := soilT[stack.Soil()[1]]
	if math.Abs(deep-annual) >= math.Abs(top-annual) {
		t.Fatalf("deeper soil must track the annual mean: top %g, deep %g", top, deep)
	}
	if math.Abs(top-surface) >= math.Abs(deep-surface) {
		t.Fatalf("shallow soil must track the surface: top %g, deep %g", top, deep)
	}
	for layer := 0; layer < stack.AboveGround(); layer++ {
		if !math.IsNaN(soilT[layer]) {
			t.Fatalf("soil temperature written above ground")
		}
	}
}

func TestHumidityClampedToHundred(t *testing.T) {
	store := testStore(t, 25, 99, 8)
	initialised(t, store)
	stack := store.Stack()
	relH, _, _, _ := store.Peek("relative_humidity")
	if relH[stack.Surface()] != 100 {
		t.Fatalf("humidity must clamp at 100, got %g", relH[stack.Surface()])
	}
	vpd, _, _, _ := store.Peek("vapour_pressure_deficit")
	if math.Abs(vpd[stack.Surface()]) > 1e-12 {
		t.Fatalf("saturated air must have zero deficit, got %g", vpd[stack.Surface()])
	}
}

func TestBareCanopyKeepsReferenceClimate(t *testing.T) {
	store := testStore(t, 25, 60, 0)
	initialised(t, store)
	stack := store.Stack()
	airT, _, _, _ := store.Peek("air_temperature")
	for layer := 0; layer < stack.AboveGround(); layer++ {
		if math.Abs(airT[layer]-25) > 1e-9 {
			t.Fatalf("without leaf area the reference must pass through, got %g", airT[layer])
		}
	}
}

func TestUpdateRefreshesProfiles(t *testing.T) {
	store := testStore(t, 25, 60, 2)
	m := initialised(t, store)
	if err := store.Write(variables.External, "air_temperature_ref", []float64{10}, "C"); err != nil {
		t.Fatal(err)
	}
	if err := m.Update(store, time.Time{}); err != nil {
		t.Fatal(err)
	}
	airT, _, _, _ := store.Peek("air_temperature")
	if math.Abs(airT[store.Stack().Surface()]-(10-1.27*2)) > 1e-9 {
		t.Fatalf("update did not track the new reference: %g", airT[store.Stack().Surface()])
	}
}
