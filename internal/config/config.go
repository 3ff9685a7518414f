// Package config loads, merges and validates the user configuration. One or
// more YAML documents are deep-merged (a leaf set by two documents is a
// violation, not last-wins), checked against the merged schema, and filled
// with declared defaults. The result is read-only; models re-decode their
// own section into a typed struct.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mesocosm/mesocosm/internal/grid"
	"github.com/mesocosm/mesocosm/internal/schema"
)

// Violation is one reason a configuration was rejected.
type Violation struct {
	// Path is the dotted key path, e.g. "core.grid.cell_nx".
	Path    string
	Message string
}

// ValidationError aggregates every violation found in one pass, so a user
// can fix the whole configuration at once.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "config: %d violation(s):", len(e.Violations))
	for i, v := range e.Violations {
		fmt.Fprintf(&b, "\n  %d. %s: %s", i+1, v.Path, v.Message)
	}
	return b.String()
}

// ValidatedConfig is the merged, validated, default-filled configuration.
type ValidatedConfig struct {
	sections map[string]Section
	core     coreSection
	output   Output
	data     []DataEntry
	digest   string
}

// Load reads and deep-merges the given YAML files, then validates the
// merged document against the schema.
func Load(sch *schema.Schema, paths ...string) (*ValidatedConfig, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("config: no configuration files given")
	}
	merged := map[string]any{}
	var violations []Violation
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		violations = append(violations, mergeDocs(merged, doc, "")...)
	}
	cfg, err := Validate(sch, merged)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) && len(violations) > 0 {
			verr.Violations = append(violations, verr.Violations...)
			sortViolations(verr.Violations)
			return nil, verr
		}
		return nil, err
	}
	if len(violations) > 0 {
		sortViolations(violations)
		return nil, &ValidationError{Violations: violations}
	}
	return cfg, nil
}

// Validate checks a merged document against the schema and fills defaults.
// It is pure: no I/O, no model construction.
func Validate(sch *schema.Schema, doc map[string]any) (*ValidatedConfig, error) {
	var violations []Violation

	modules := activeModules(doc)
	active := make(map[string]bool, len(modules))
	for _, name := range modules {
		active[name] = true
		if _, ok := sch.Fragment(name); !ok {
			violations = append(violations, Violation{
				Path:    "core.modules",
				Message: fmt.Sprintf("model %q has no schema fragment; is it registered?", name),
			})
		}
	}

	reserved := map[string]bool{SectionCore: true, SectionOutput: true, SectionData: true}
	for name := range doc {
		if _, ok := sch.Fragment(name); !ok {
			violations = append(violations, Violation{Path: name, Message: "unknown section"})
			continue
		}
		if !reserved[name] && !active[name] {
			violations = append(violations, Violation{
				Path:    name,
				Message: "section present but model is not listed in core.modules",
			})
		}
	}

	// Sections to apply: the reserved three always (defaults fill even when
	// absent), plus every active model with a fragment.
	apply := []string{SectionCore, SectionOutput, SectionData}
	for _, name := range modules {
		if _, ok := sch.Fragment(name); ok {
			apply = append(apply, name)
		}
	}

	sections := make(map[string]Section, len(apply))
	for _, name := range apply {
		frag, _ := sch.Fragment(name)
		value := map[string]any{}
		if raw, present := doc[name]; present {
			m, ok := asSectionMap(raw)
			if !ok {
				violations = append(violations, Violation{
					Path:    name,
					Message: fmt.Sprintf("section must be a mapping, got %T", raw),
				})
				continue
			}
			value = m
		}
		filled, problems := schema.ApplySection(frag, value)
		for _, p := range problems {
			violations = append(violations, Violation{Path: p.Path, Message: p.Message})
		}
		sections[name] = Section(filled)
	}

	cfg := &ValidatedConfig{sections: sections}
	if sec, ok := sections[SectionCore]; ok {
		if err := sec.Decode(&cfg.core); err != nil {
			violations = append(violations, Violation{Path: SectionCore, Message: err.Error()})
		}
	}
	if sec, ok := sections[SectionOutput]; ok {
		if err := sec.Decode(&cfg.output); err != nil {
			violations = append(violations, Violation{Path: SectionOutput, Message: err.Error()})
		}
	}
	if sec, ok := sections[SectionData]; ok {
		var ds dataSection
		if err := sec.Decode(&ds); err != nil {
			violations = append(violations, Violation{Path: SectionData, Message: err.Error()})
		}
		cfg.data = ds.Entries
		violations = append(violations, checkDataEntries(ds.Entries)...)
	}

	if len(violations) > 0 {
		sortViolations(violations)
		return nil, &ValidationError{Violations: violations}
	}

	digest, err := cfg.computeDigest()
	if err != nil {
		return nil, err
	}
	cfg.digest = digest
	return cfg, nil
}

// checkDataEntries enforces what the fragment cannot express: exactly one
// of value and values per entry.
func checkDataEntries(entries []DataEntry) []Violation {
	var out []Violation
	for i, e := range entries {
		path := fmt.Sprintf("data.entries[%d]", i)
		hasScalar := e.Value != nil
		hasList := len(e.Values) > 0
		if hasScalar == hasList {
			out = append(out, Violation{
				Path:    path,
				Message: "exactly one of value and values is required",
			})
		}
	}
	return out
}

// Section returns a validated top-level section by name.
func (c *ValidatedConfig) Section(name string) (Section, bool) {
	s, ok := c.sections[name]
	return s, ok
}

// Modules returns the active model names in declaration order.
func (c *ValidatedConfig) Modules() []string {
	out := make([]string, len(c.core.Modules))
	copy(out, c.core.Modules)
	return out
}

// Grid returns the grid construction settings.
func (c *ValidatedConfig) Grid() grid.Config {
	return c.core.gridConfig()
}

// Timing returns the simulation calendar settings.
func (c *ValidatedConfig) Timing() Timing {
	return Timing{
		Start:          c.core.Timing.StartDate.Time,
		UpdateInterval: c.core.Timing.UpdateInterval,
		RunLength:      c.core.Timing.RunLength,
	}
}

// Layers returns the canopy and soil layer counts.
func (c *ValidatedConfig) Layers() (canopy, soil int) {
	return c.core.Layers.Canopy, c.core.Layers.Soil
}

// Output returns the output options.
func (c *ValidatedConfig) Output() Output {
	return c.output
}

// SetOutput overrides the output options, used by the command line to
// redirect the output directory.
func (c *ValidatedConfig) SetOutput(out Output) {
	c.output = out
}

// Data returns the externally supplied variable entries.
func (c *ValidatedConfig) Data() []DataEntry {
	out := make([]DataEntry, len(c.data))
	copy(out, c.data)
	return out
}

// Digest returns the sha256 hex digest of the merged, validated document,
// stamped into run manifests for reproducibility.
func (c *ValidatedConfig) Digest() string {
	return c.digest
}

// WriteMerged exports the merged, default-filled document so a run can be
// reproduced from a single file.
func (c *ValidatedConfig) WriteMerged(path string) error {
	raw, err := c.marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: ensure output dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("config: write merged config: %w", err)
	}
	return nil
}

func (c *ValidatedConfig) marshal() ([]byte, error) {
	doc := make(map[string]any, len(c.sections))
	for name, sec := range c.sections {
		doc[name] = map[string]any(sec)
	}
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("config: encode merged config: %w", err)
	}
	return raw, nil
}

func (c *ValidatedConfig) computeDigest() (string, error) {
	raw, err := c.marshal()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// mergeDocs folds src into dst, reporting a violation for every leaf both
// documents set.
func mergeDocs(dst, src map[string]any, prefix string) []Violation {
	var out []Violation
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		existing, present := dst[k]
		if !present {
			dst[k] = src[k]
			continue
		}
		dstMap, dstOK := asSectionMap(existing)
		srcMap, srcOK := asSectionMap(src[k])
		if dstOK && srcOK {
			out = append(out, mergeDocs(dstMap, srcMap, path)...)
			dst[k] = dstMap
			continue
		}
		out = append(out, Violation{Path: path, Message: "set by more than one configuration file"})
	}
	return out
}

// activeModules pulls core.modules out of the raw document before
// validation, tolerating any malformed shape (the core fragment reports
// those).
func activeModules(doc map[string]any) []string {
	core, ok := asSectionMap(doc[SectionCore])
	if !ok {
		return nil
	}
	raw, ok := core["modules"].([]any)
	if !ok {
		if typed, ok := core["modules"].([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asSectionMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case Section:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = v
		}
		return out, true
	}
	return nil, false
}

func sortViolations(violations []Violation) {
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Path != violations[j].Path {
			return violations[i].Path < violations[j].Path
		}
		return violations[i].Message < violations[j].Message
	})
}
