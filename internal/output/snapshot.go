package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mesocosm/mesocosm/internal/data"
)

// Snapshot is a self-describing copy of the data store at a point in
// simulated time.
type Snapshot struct {
	RunID     string           `json:"run_id"`
	Step      int              `json:"step"`
	Time      time.Time        `json:"time"`
	Cells     int              `json:"cells"`
	Layers    int              `json:"layers"`
	Variables map[string]Array `json:"variables"`
}

// Array is one variable's state in a snapshot: its values (cell-major,
// layer rows concatenated for layered variables), unit, provenance and a
// finite-value summary.
type Array struct {
	Unit       string  `json:"unit"`
	Layered    bool    `json:"layered,omitempty"`
	Values     []Float `json:"values"`
	LastWriter string  `json:"last_writer"`
	LastStep   int     `json:"last_step"`
	Min        Float   `json:"min"`
	Mean       Float   `json:"mean"`
	Max        Float   `json:"max"`
}

// BuildSnapshot copies every created-and-written variable out of the
// store.
func BuildSnapshot(runID string, step int, at time.Time, store *data.Store) *Snapshot {
	snap := &Snapshot{
		RunID:     runID,
		Step:      step,
		Time:      at,
		Cells:     store.Cells(),
		Layers:    store.Layers(),
		Variables: map[string]Array{},
	}
	for _, name := range store.Names() {
		if !store.Written(name) {
			continue
		}
		values, v, prov, _ := store.Peek(name)
		min, mean, max := summarise(values)
		arr := Array{
			Unit:       v.Unit,
			Layered:    v.Layered,
			Values:     make([]Float, len(values)),
			LastWriter: prov.LastWriter,
			LastStep:   prov.LastStep,
			Min:        Float(min),
			Mean:       Float(mean),
			Max:        Float(max),
		}
		for i, val := range values {
			arr.Values[i] = Float(val)
		}
		snap.Variables[name] = arr
	}
	return snap
}

// SaveSnapshot writes a snapshot to dir as snapshot_<step>.json and
// returns the path.
func SaveSnapshot(snap *Snapshot, dir string) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snap.Step))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}
	return path, nil
}

// ReadSnapshot loads a snapshot back from disk.
func ReadSnapshot(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("output: read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("output: parse snapshot %s: %w", path, err)
	}
	return &snap, nil
}
