package sim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mesocosm/mesocosm/internal/config"
	"github.com/mesocosm/mesocosm/internal/data"
	"github.com/mesocosm/mesocosm/internal/journal"
	"github.com/mesocosm/mesocosm/internal/model"
	"github.com/mesocosm/mesocosm/internal/models"
	"github.com/mesocosm/mesocosm/internal/output"
	"github.com/mesocosm/mesocosm/internal/resolver"
	"github.com/mesocosm/mesocosm/internal/schema"
	"github.com/mesocosm/mesocosm/internal/timing"
	"github.com/mesocosm/mesocosm/internal/variables"
)

func builtinRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg := model.NewRegistry()
	models.RegisterBuiltins(reg)
	return reg
}

func loadConfig(t *testing.T, reg *model.Registry, body string) *config.ValidatedConfig {
	t.Helper()
	sch, err := schema.Merge(append(config.Fragments(), reg.Fragments()...)...)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(sch, path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func fullRunConfig(outDir string) string {
	return `
core:
  modules: [microclimate, hydrology, plants, litter, soil]
  grid:
    cell_nx: 2
    cell_ny: 2
  timing:
    start_date: 2020-01-01
    update_interval: "1 week"
    run_length: "1 month"
output:
  initial: true
  continuous: true
  cadence: 2
  final: true
  dir: "` + outDir + `"
data:
  entries:
    - variable: air_temperature_ref
      value: 20
    - variable: relative_humidity_ref
      value: 60
    - variable: atmospheric_pressure_ref
      value: 101.3
    - variable: atmospheric_co2_ref
      value: 400
    - variable: mean_annual_temperature
      value: 18
    - variable: precipitation
      value: 50
    - variable: elevation
      values: [100, 150, 200, 250]
    - variable: downward_shortwave_radiation
      value: 200
`
}

func TestRunCompletesEndToEnd(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	reg := builtinRegistry(t)
	cfg := loadConfig(t, reg, fullRunConfig(outDir))

	j := journal.InMemory()
	controller, err := New(cfg, reg, WithJournal(j))
	if err != nil {
		t.Fatal(err)
	}
	if controller.State() != StateConfigured {
		t.Fatalf("fresh controller in state %s", controller.State())
	}
	if err := controller.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if controller.State() != StateComplete {
		t.Fatalf("expected Complete, got %s", controller.State())
	}

	for _, file := range []string{
		"run.json", "telemetry.csv", "variables.csv", "config_merged.yaml",
		"snapshot_0.json", "snapshot_2.json", "snapshot_4.json",
	} {
		if _, err := os.Stat(filepath.Join(outDir, file)); err != nil {
			t.Fatalf("missing artifact %s: %v", file, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "snapshot_1.json")); err == nil {
		t.Fatalf("snapshot written off cadence")
	}

	states := j.OfKind(journal.KindState)
	var seq []string
	for _, e := range states {
		seq = append(seq, e.Message)
	}
	want := []string{
		"configured -> initialising",
		"initialising -> running",
		"running -> finalising",
		"finalising -> complete",
	}
	if strings.Join(seq, "; ") != strings.Join(want, "; ") {
		t.Fatalf("unexpected state sequence %v", seq)
	}
	if steps := j.OfKind(journal.KindStep); len(steps) != 4 {
		t.Fatalf("expected 4 step entries, got %d", len(steps))
	}
	if warns := j.OfKind(journal.KindWarn); len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}

	snap, err := output.ReadSnapshot(filepath.Join(outDir, "snapshot_4.json"))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Cells != 4 || snap.Step != 4 {
		t.Fatalf("unexpected final snapshot %d cells step %d", snap.Cells, snap.Step)
	}
	moisture, ok := snap.Variables["soil_moisture"]
	if !ok || moisture.LastWriter != "hydrology" || moisture.LastStep != 4 {
		t.Fatalf("unexpected soil_moisture provenance %+v", moisture)
	}
	for _, name := range []string{
		"air_temperature", "soil_temperature", "leaf_area_index",
		"litter_pool", "soil_c_pool_lmwc", "surface_runoff",
	} {
		if _, ok := snap.Variables[name]; !ok {
			t.Fatalf("final snapshot misses %s", name)
		}
	}

	manifest, err := os.ReadFile(filepath.Join(outDir, "run.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(manifest), `"status": "complete"`) {
		t.Fatalf("manifest not Complete: %s", manifest)
	}
	if !strings.Contains(string(manifest), cfg.Digest()) {
		t.Fatalf("manifest misses config digest")
	}
}

// relayModel consumes the external driver and never writes anything.
type relayModel struct {
	model.Base
}

func (m *relayModel) Initialise(section config.Section, store *data.Store) error {
	return nil
}

func (m *relayModel) Update(store *data.Store, now time.Time) error {
	_, err := store.Read("relay", "driver")
	return err
}

// A variable whose only active producer is an updater has no value after
// the initialise phase; the gate into Running must leave it alone.
func TestRunExemptsUpdaterOnlyVariableFromInitGate(t *testing.T) {
	cat, err := variables.NewCatalogue(
		variables.Variable{
			Name: "driver", Unit: "mm",
			InitialisedBy: []string{variables.External},
			UsedBy:        []string{"relay"},
		},
		variables.Variable{
			Name: "residue", Unit: "mm",
			InitialisedBy: []string{"sediment"},
			UpdatedBy:     []string{"relay"},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	desc := model.Descriptor{Name: "relay", Required: []string{"driver"}}
	reg := model.NewRegistry()
	reg.MustRegister(model.Definition{
		Descriptor: desc,
		Fragment:   schema.Fragment{Section: "relay"},
		New: func() (model.Model, error) {
			return &relayModel{Base: model.NewBase(desc)}, nil
		},
	})

	outDir := filepath.Join(t.TempDir(), "out")
	cfg := loadConfig(t, reg, `
core:
  modules: [relay]
  grid:
    cell_nx: 2
    cell_ny: 2
  timing:
    start_date: 2020-01-01
    update_interval: "1 week"
    run_length: "1 month"
output:
  dir: "`+outDir+`"
data:
  entries:
    - variable: driver
      value: 5
`)
	j := journal.InMemory()
	controller, err := New(cfg, reg, WithCatalogue(cat), WithJournal(j))
	if err != nil {
		t.Fatal(err)
	}
	if err := controller.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if controller.State() != StateComplete {
		t.Fatalf("expected Complete, got %s", controller.State())
	}
	if warns := j.OfKind(journal.KindWarn); len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	report, err := os.ReadFile(filepath.Join(outDir, "variables.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(report), "residue") {
		t.Fatalf("unwritten variable in report: %s", report)
	}
}

func TestRunRejectsSecondStart(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	reg := builtinRegistry(t)
	cfg := loadConfig(t, reg, fullRunConfig(outDir))
	controller, err := New(cfg, reg, WithJournal(journal.InMemory()))
	if err != nil {
		t.Fatal(err)
	}
	if err := controller.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := controller.Run(context.Background()); err == nil {
		t.Fatalf("second Run must be rejected")
	}
}

func TestRunFailsOnCancelledContext(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	reg := builtinRegistry(t)
	cfg := loadConfig(t, reg, fullRunConfig(outDir))
	controller, err := New(cfg, reg, WithJournal(journal.InMemory()))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = controller.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if controller.State() != StateFailed {
		t.Fatalf("expected Failed, got %s", controller.State())
	}
	manifest, err := os.ReadFile(filepath.Join(outDir, "run.json"))
	if err != nil {
		t.Fatalf("failure manifest missing: %v", err)
	}
	if !strings.Contains(string(manifest), `"status": "failed"`) {
		t.Fatalf("manifest not Failed: %s", manifest)
	}
}

func TestPreflightRejectsUnknownModule(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	reg := builtinRegistry(t)
	body := strings.Replace(fullRunConfig(outDir),
		"[microclimate, hydrology, plants, litter, soil]",
		"[hydrology, hydrology]", 1)
	cfg := loadConfig(t, reg, body)
	controller, err := New(cfg, reg, WithJournal(journal.InMemory()))
	if err != nil {
		t.Fatal(err)
	}
	err = controller.Run(context.Background())
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	found := false
	for _, v := range verr.Violations {
		if v.Path == "core.modules" && strings.Contains(v.Message, "more than once") {
			found = true
		}
	}
	if !found {
		t.Fatalf("duplicate module not reported: %v", verr.Violations)
	}
	if controller.State() != StateFailed {
		t.Fatalf("expected Failed, got %s", controller.State())
	}
}

func TestPreflightRejectsDanglingDependency(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	reg := builtinRegistry(t)
	// litter declares an update dependency on microclimate.
	body := strings.Replace(fullRunConfig(outDir),
		"[microclimate, hydrology, plants, litter, soil]",
		"[hydrology, plants, litter]", 1)
	cfg := loadConfig(t, reg, body)
	controller, err := New(cfg, reg, WithJournal(journal.InMemory()))
	if err != nil {
		t.Fatal(err)
	}
	err = controller.Run(context.Background())
	var uerr *resolver.UnregisteredDependencyError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnregisteredDependencyError, got %v", err)
	}
	if uerr.Model != "litter" || uerr.Dependency != "microclimate" {
		t.Fatalf("unexpected error %+v", uerr)
	}
}

func TestPreflightRejectsMissingExternalData(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	reg := builtinRegistry(t)
	body := strings.Replace(fullRunConfig(outDir),
		"    - variable: precipitation\n      value: 50\n", "", 1)
	cfg := loadConfig(t, reg, body)
	controller, err := New(cfg, reg, WithJournal(journal.InMemory()))
	if err != nil {
		t.Fatal(err)
	}
	err = controller.Run(context.Background())
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	found := false
	for _, v := range verr.Violations {
		if v.Path == "data" && strings.Contains(v.Message, "precipitation") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing data entry not reported: %v", verr.Violations)
	}
}

func TestPreflightRejectsIntervalOutsideBounds(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	reg := builtinRegistry(t)
	body := strings.Replace(fullRunConfig(outDir),
		`update_interval: "1 week"`, `update_interval: "2 months"`, 1)
	body = strings.Replace(body, `run_length: "1 month"`, `run_length: "1 year"`, 1)
	cfg := loadConfig(t, reg, body)
	controller, err := New(cfg, reg, WithJournal(journal.InMemory()))
	if err != nil {
		t.Fatal(err)
	}
	err = controller.Run(context.Background())
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	found := false
	for _, v := range verr.Violations {
		if v.Path == "core.timing.update_interval" {
			found = true
		}
	}
	if !found {
		t.Fatalf("interval bound not reported: %v", verr.Violations)
	}
}

func TestInitAndUpdateOrdersRespectDependencies(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	reg := builtinRegistry(t)
	cfg := loadConfig(t, reg, fullRunConfig(outDir))
	controller, err := New(cfg, reg, WithJournal(journal.InMemory()))
	if err != nil {
		t.Fatal(err)
	}

	descriptors := preflightFor(t, controller)
	initOrder, err := resolver.Order(model.PhaseInit, descriptors, controller.catalogue)
	if err != nil {
		t.Fatal(err)
	}
	updateOrder, err := resolver.Order(model.PhaseUpdate, descriptors, controller.catalogue)
	if err != nil {
		t.Fatal(err)
	}

	pos := func(order []string, name string) int {
		for i, n := range order {
			if n == name {
				return i
			}
		}
		t.Fatalf("%s missing from %v", name, order)
		return -1
	}
	// plants writes the layer structure the microclimate interpolates over.
	if pos(initOrder, "plants") > pos(initOrder, "microclimate") {
		t.Fatalf("plants must initialise before microclimate: %v", initOrder)
	}
	if pos(updateOrder, "hydrology") > pos(updateOrder, "plants") {
		t.Fatalf("hydrology must update before plants: %v", updateOrder)
	}
	if pos(updateOrder, "litter") > pos(updateOrder, "soil") {
		t.Fatalf("litter must update before soil: %v", updateOrder)
	}
	if pos(updateOrder, "microclimate") > pos(updateOrder, "litter") {
		t.Fatalf("microclimate must update before litter: %v", updateOrder)
	}
}

func preflightFor(t *testing.T, c *Controller) []model.Descriptor {
	t.Helper()
	tc := c.cfg.Timing()
	clock, err := timing.New(tc.Start, tc.UpdateInterval, tc.RunLength)
	if err != nil {
		t.Fatal(err)
	}
	descriptors, err := c.preflight(clock, 4)
	if err != nil {
		t.Fatal(err)
	}
	return descriptors
}
