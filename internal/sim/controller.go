// Package sim drives a simulation run: it computes the calendar, builds
// the grid and the data store, initialises the active models in resolved
// order, loops the update phase over every step, and persists snapshots,
// telemetry and the run manifest. The controller is a small state machine;
// any model or access error is fatal and moves it to Failed.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mesocosm/mesocosm/internal/config"
	"github.com/mesocosm/mesocosm/internal/data"
	"github.com/mesocosm/mesocosm/internal/grid"
	"github.com/mesocosm/mesocosm/internal/journal"
	"github.com/mesocosm/mesocosm/internal/layers"
	"github.com/mesocosm/mesocosm/internal/logging"
	"github.com/mesocosm/mesocosm/internal/model"
	"github.com/mesocosm/mesocosm/internal/output"
	"github.com/mesocosm/mesocosm/internal/resolver"
	"github.com/mesocosm/mesocosm/internal/timing"
	"github.com/mesocosm/mesocosm/internal/variables"
)

// Controller owns one simulation run.
type Controller struct {
	cfg       *config.ValidatedConfig
	registry  *model.Registry
	catalogue *variables.Catalogue
	logger    *slog.Logger
	journal   *journal.Journal
	now       func() time.Time
	state     State
}

// Option customises the controller.
type Option func(*Controller)

// WithLogger injects the run logger; the default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCatalogue overrides the variable catalogue; the default is the
// standard catalogue of the shipped model set.
func WithCatalogue(cat *variables.Catalogue) Option {
	return func(c *Controller) {
		if cat != nil {
			c.catalogue = cat
		}
	}
}

// WithJournal overrides the run journal; the default writes journal.log
// under the output directory.
func WithJournal(j *journal.Journal) Option {
	return func(c *Controller) {
		if j != nil {
			c.journal = j
		}
	}
}

// WithNow injects a deterministic wall clock (for tests).
func WithNow(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New wires a controller to a validated configuration and a model
// registry.
func New(cfg *config.ValidatedConfig, registry *model.Registry, opts ...Option) (*Controller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sim: validated configuration is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("sim: model registry is required")
	}
	c := &Controller{
		cfg:       cfg,
		registry:  registry,
		catalogue: variables.Standard(),
		logger:    logging.Discard(),
		now:       time.Now,
		state:     StateConfigured,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// run bundles the per-run scratch the controller threads through its
// phases.
type run struct {
	id          string
	clock       timing.Clock
	store       *data.Store
	models      map[string]model.Model
	initOrder   []string
	updateOrder []string
	telemetry   *output.Telemetry
	outDir      string
	out         config.Output
	started     time.Time
	completed   int
}

// Run executes the simulation to completion or failure. The context is
// checked between model invocations only; a model is never pre-empted
// mid-call.
func (c *Controller) Run(ctx context.Context) error {
	if c.state != StateConfigured {
		return fmt.Errorf("sim: run already started (state %s)", c.state)
	}
	r := &run{
		id:      output.NewRunID(),
		out:     c.cfg.Output(),
		started: c.now(),
	}
	r.outDir = r.out.Dir
	if c.journal == nil {
		j, err := journal.New(filepath.Join(r.outDir, "journal.log"))
		if err != nil {
			return c.fail(r, err)
		}
		c.journal = j
	}
	c.logger.Info("run starting", slog.String("run_id", r.id),
		slog.String("config_digest", c.cfg.Digest()))

	if err := c.configure(r); err != nil {
		return c.fail(r, err)
	}
	if err := c.initialise(ctx, r); err != nil {
		return c.fail(r, err)
	}
	if err := c.loop(ctx, r); err != nil {
		return c.fail(r, err)
	}
	if err := c.finalise(r); err != nil {
		return c.fail(r, err)
	}
	c.transition(StateComplete)
	c.logger.Info("run complete", slog.String("run_id", r.id),
		slog.Int("steps", r.completed))
	return c.writeManifest(r, nil)
}

// configure resolves the calendar, runs preflight, and builds the grid,
// layer stack, store and execution orders.
func (c *Controller) configure(r *run) error {
	t := c.cfg.Timing()
	clock, err := timing.New(t.Start, t.UpdateInterval, t.RunLength)
	if err != nil {
		return err
	}
	r.clock = clock

	g, err := grid.New(c.cfg.Grid())
	if err != nil {
		return err
	}
	canopy, soil := c.cfg.Layers()
	stack, err := layers.New(canopy, soil)
	if err != nil {
		return err
	}

	descriptors, err := c.preflight(clock, g.CellCount())
	if err != nil {
		return err
	}
	r.initOrder, err = resolver.Order(model.PhaseInit, descriptors, c.catalogue)
	if err != nil {
		return err
	}
	r.updateOrder, err = resolver.Order(model.PhaseUpdate, descriptors, c.catalogue)
	if err != nil {
		return err
	}

	r.store, err = data.NewStore(c.catalogue, g.CellCount(), stack)
	if err != nil {
		return err
	}
	c.logger.Info("configured",
		slog.Int("cells", g.CellCount()),
		slog.Int("layers", stack.Total()),
		slog.Int("steps", clock.Steps()),
		slog.Any("init_order", r.initOrder),
		slog.Any("update_order", r.updateOrder))
	return nil
}

// initialise creates the run's variables, writes the external data, and
// calls every model's initialise operation in resolved order. It ends with
// the gate into Running: every variable with an active initialiser must
// have been written. Variables whose only active producer updates are
// exempt from the gate; they stay unwritten and out of the outputs.
func (c *Controller) initialise(ctx context.Context, r *run) error {
	c.transition(StateInitialising)
	if err := c.cfg.WriteMerged(filepath.Join(r.outDir, "config_merged.yaml")); err != nil {
		// Reproducibility artifact only; the run itself is unaffected.
		c.journal.Append(journal.KindWarn, "merged config not written: %v", err)
		c.logger.Warn("merged config not written", slog.Any("error", err))
	}

	active := map[string]bool{}
	for _, name := range c.cfg.Modules() {
		active[name] = true
	}
	created, err := c.createVariables(r, active)
	if err != nil {
		return err
	}

	r.store.SetStep(0)
	for _, entry := range c.cfg.Data() {
		values := entry.Values
		if entry.Value != nil {
			values = make([]float64, r.store.Cells())
			for i := range values {
				values[i] = *entry.Value
			}
		}
		v, _ := c.catalogue.Get(entry.Variable)
		unit := entry.Unit
		if unit == "" {
			unit = v.Unit
		}
		if err := r.store.Write(variables.External, entry.Variable, values, unit); err != nil {
			return err
		}
	}

	r.models = make(map[string]model.Model, len(r.initOrder))
	for _, name := range r.initOrder {
		def, _ := c.registry.Get(name)
		m, err := def.New()
		if err != nil {
			return &InitError{Model: name, Err: err}
		}
		r.models[name] = m
	}
	for _, name := range r.initOrder {
		if err := ctx.Err(); err != nil {
			return err
		}
		section, _ := c.cfg.Section(name)
		if err := r.models[name].Initialise(section, r.store); err != nil {
			return &InitError{Model: name, Err: err}
		}
		c.logger.Debug("initialised", slog.String("model", name))
	}

	var missing []string
	for _, name := range created {
		v, _ := c.catalogue.Get(name)
		if v.ExternallySupplied() || len(activeOf(v.InitialisedBy, active)) == 0 {
			continue
		}
		if !r.store.Written(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("sim: variables not initialised by any model: %s",
			strings.Join(missing, ", "))
	}
	return nil
}

// createVariables allocates every variable this run will use: externals
// with a data entry, plus variables with an active producer in either
// phase.
func (c *Controller) createVariables(r *run, active map[string]bool) ([]string, error) {
	supplied := map[string]bool{}
	for _, entry := range c.cfg.Data() {
		supplied[entry.Variable] = true
	}
	var created []string
	for _, name := range c.catalogue.Names() {
		v, _ := c.catalogue.Get(name)
		wanted := false
		switch {
		case v.ExternallySupplied():
			wanted = supplied[name]
		case len(activeOf(v.InitialisedBy, active)) > 0,
			len(activeOf(v.UpdatedBy, active)) > 0:
			wanted = true
		}
		if !wanted {
			continue
		}
		if err := r.store.Create(name); err != nil {
			return nil, err
		}
		created = append(created, name)
	}
	return created, nil
}

// loop runs the update phase for every step, recording telemetry and
// writing continuous snapshots at the configured cadence.
func (c *Controller) loop(ctx context.Context, r *run) error {
	c.transition(StateRunning)
	telemetry, err := output.NewTelemetry(r.outDir)
	if err != nil {
		if r.out.Required {
			return err
		}
		c.journal.Append(journal.KindPersist, "telemetry disabled: %v", err)
		telemetry = nil
	}
	r.telemetry = telemetry

	if r.out.Initial {
		if err := c.snapshot(r, 0, r.clock.Start()); err != nil {
			return err
		}
	}

	for step := 1; step <= r.clock.Steps(); step++ {
		now := r.clock.TimeAt(step)
		r.store.SetStep(step)
		wallStart := c.now()
		for _, name := range r.updateOrder {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.models[name].Update(r.store, now); err != nil {
				return &UpdateError{Model: name, Step: step, Err: err}
			}
		}
		r.completed = step
		c.checkMissedUpdates(r, step)

		writes := c.countWrites(r, step)
		if r.telemetry != nil {
			rec := output.StepRecord{
				Step:   step,
				Time:   now.Format(time.RFC3339),
				WallMS: c.now().Sub(wallStart).Milliseconds(),
				Writes: writes,
			}
			if err := r.telemetry.Write(rec); err != nil {
				c.journal.Append(journal.KindPersist, "telemetry row %d failed: %v", step, err)
			}
		}
		c.journal.Append(journal.KindStep, "step %d of %d at %s, %d writes",
			step, r.clock.Steps(), now.Format("2006-01-02"), writes)

		if r.out.Continuous && step%r.out.Cadence == 0 {
			if err := c.snapshot(r, step, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// finalise persists the final snapshot and the variable report, then
// closes any model that holds resources.
func (c *Controller) finalise(r *run) error {
	c.transition(StateFinalising)
	if r.out.Final {
		if err := c.snapshot(r, r.clock.Steps(), r.clock.End()); err != nil {
			return err
		}
	}
	if err := output.WriteVariableReport(r.outDir, r.store); err != nil {
		if r.out.Required {
			return err
		}
		c.journal.Append(journal.KindPersist, "variable report failed: %v", err)
	}
	c.closeModels(r)
	if err := r.telemetry.Close(); err != nil {
		c.journal.Append(journal.KindPersist, "telemetry close failed: %v", err)
	}
	return nil
}

// closeModels invokes the optional Closer capability in reverse init
// order. Close errors are reported, not fatal.
func (c *Controller) closeModels(r *run) {
	for i := len(r.initOrder) - 1; i >= 0; i-- {
		name := r.initOrder[i]
		closer, ok := r.models[name].(model.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			c.journal.Append(journal.KindError, "close %s: %v", name, err)
			c.logger.Error("model close failed",
				slog.String("model", name), slog.Any("error", err))
		}
	}
}

// snapshot persists the store. A failed write is fatal only when the
// output section marks persistence as required.
func (c *Controller) snapshot(r *run, step int, at time.Time) error {
	snap := output.BuildSnapshot(r.id, step, at, r.store)
	path, err := output.SaveSnapshot(snap, r.outDir)
	if err != nil {
		c.journal.Append(journal.KindPersist, "snapshot %d failed: %v", step, err)
		c.logger.Error("snapshot failed", slog.Int("step", step), slog.Any("error", err))
		if r.out.Required {
			return err
		}
		return nil
	}
	c.journal.Append(journal.KindPersist, "snapshot %d written to %s", step, path)
	return nil
}

// checkMissedUpdates warns when a variable's sole active updater went a
// whole step without writing it.
func (c *Controller) checkMissedUpdates(r *run, step int) {
	for _, name := range r.store.Names() {
		v, _ := c.catalogue.Get(name)
		updaters := make([]string, 0, 1)
		for _, u := range v.UpdatedBy {
			if u != variables.External && r.models[u] != nil {
				updaters = append(updaters, u)
			}
		}
		if len(updaters) != 1 {
			continue
		}
		prov, ok := r.store.Provenance(name)
		if ok && prov.Writes > 0 && prov.LastStep != step {
			c.journal.Append(journal.KindWarn, "%s did not update %s at step %d",
				updaters[0], name, step)
			c.logger.Warn("declared update missed",
				slog.String("model", updaters[0]),
				slog.String("variable", name),
				slog.Int("step", step))
		}
	}
}

func (c *Controller) countWrites(r *run, step int) int {
	count := 0
	for _, name := range r.store.Names() {
		if prov, ok := r.store.Provenance(name); ok && prov.LastStep == step && prov.Writes > 0 {
			count++
		}
	}
	return count
}

// fail moves the controller to Failed, preserves whatever was persisted,
// and writes the manifest with the failure recorded.
func (c *Controller) fail(r *run, err error) error {
	if r.telemetry != nil {
		_ = r.telemetry.Close()
	}
	c.transition(StateFailed)
	c.journal.Append(journal.KindError, "%v", err)
	c.logger.Error("run failed", slog.String("run_id", r.id), slog.Any("error", err))
	if werr := c.writeManifest(r, err); werr != nil {
		c.logger.Error("manifest not written", slog.Any("error", werr))
	}
	return err
}

func (c *Controller) writeManifest(r *run, runErr error) error {
	m := output.Manifest{
		RunID:          r.id,
		Status:         string(c.state),
		StepsCompleted: r.completed,
		ConfigDigest:   c.cfg.Digest(),
		StartedAt:      r.started,
		FinishedAt:     c.now(),
	}
	m.Steps = r.clock.Steps()
	if runErr != nil {
		m.Error = runErr.Error()
	}
	return output.WriteManifest(r.outDir, m)
}

func (c *Controller) transition(to State) {
	if to != StateFailed && !c.state.canTransition(to) {
		// Transitions are driven by Run's fixed sequence; anything else is
		// a programming error.
		panic(fmt.Sprintf("sim: illegal transition %s -> %s", c.state, to))
	}
	c.journal.State(string(c.state), string(to))
	c.logger.Info("state", slog.String("from", string(c.state)), slog.String("to", string(to)))
	c.state = to
}
