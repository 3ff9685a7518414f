package hydrology

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

func testStore(t *testing.T) *data.Store {
	t.Helper()
	stack, err := layers.New(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	store, err := data.NewStore(variables.Standard(), 2, stack)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"precipitation", "elevation", "soil_moisture", "surface_runoff"} {
		if err := store.Create(name); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func section(t *testing.T, overrides map[string]any) config.Section {
	t.Helper()
	filled, problems := schema.ApplySection(fragment(), overrides)
	if len(problems) != 0 {
		t.Fatalf("section problems: %v", problems)
	}
	return config.Section(filled)
}

func approx(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("want %g, got %g", want, got)
	}
}

func TestInitialiseFillsBucket(t *testing.T) {
	store := testStore(t)
	m := New()
	if err := m.Initialise(section(t, map[string]any{}), store); err != nil {
		t.Fatal(err)
	}
	moisture, _, _, _ := store.Peek("soil_moisture")
	approx(t, moisture[0], 75)
	runoff, _, _, _ := store.Peek("surface_runoff")
	approx(t, runoff[0], 0)
}

func TestUpdateWaterBalance(t *testing.T) {
	store := testStore(t)
	ext := variables.External
	if err := store.Write(ext, "precipitation", []float64{10, 20}, "mm"); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(ext, "elevation", []float64{0, 100}, "m"); err != nil {
		t.Fatal(err)
	}
	m := New()
	if err := m.Initialise(section(t, map[string]any{}), store); err != nil {
		t.Fatal(err)
	}
	if err := m.Update(store, time.Time{}); err != nil {
		t.Fatal(err)
	}
	moisture, _, _, _ := store.Peek("soil_moisture")
	runoff, _, _, _ := store.Peek("surface_runoff")

	// Flat cell: no direct runoff, the whole 10 mm infiltrates and 5% of
	// the stored 75 mm drains.
	approx(t, moisture[0], 75+10-0.05*75)
	approx(t, runoff[0], 0)

	// Elevated cell: exposure 100/(100+100)=0.5, direct 20*0.3*0.5=3 mm.
	approx(t, moisture[1], 75+(20-3)-0.05*75)
	approx(t, runoff[1], 3)
}

func TestUpdateCapacityOverflow(t *testing.T) {
	store := testStore(t)
	ext := variables.External
	if err := store.Write(ext, "precipitation", []float64{10, 10}, "mm"); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(ext, "elevation", []float64{0, 0}, "m"); err != nil {
		t.Fatal(err)
	}
	m := New()
	if err := m.Initialise(section(t, map[string]any{"initial_moisture": 150.0}), store); err != nil {
		t.Fatal(err)
	}
	if err := m.Update(store, time.Time{}); err != nil {
		t.Fatal(err)
	}
	moisture, _, _, _ := store.Peek("soil_moisture")
	runoff, _, _, _ := store.Peek("surface_runoff")
	approx(t, moisture[0], 150)
	approx(t, runoff[0], 150+10-0.05*150-150)
}
